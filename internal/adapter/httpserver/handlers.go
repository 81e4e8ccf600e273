package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/export/xlsx"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-mock-interview/internal/config"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	"github.com/fairyhunter13/ai-mock-interview/internal/usecase"
)

// AnswerSubmitter evaluates main and follow-up answers.
type AnswerSubmitter interface {
	SubmitMain(ctx domain.Context, userID string, in usecase.MainAnswerInput) (usecase.MainAnswerResult, error)
	SubmitFollowUp(ctx domain.Context, userID string, in usecase.FollowUpAnswerInput) (usecase.FollowUpAnswerResult, error)
}

// InterviewManager owns the interview lifecycle.
type InterviewManager interface {
	Create(ctx domain.Context, userID string, in usecase.CreateInterviewInput) (domain.Interview, error)
	Get(ctx domain.Context, id, userID string) (domain.Interview, error)
	List(ctx domain.Context, userID string) ([]domain.Interview, error)
	Delete(ctx domain.Context, id, userID string) error
}

// ResultReader aggregates interview results.
type ResultReader interface {
	Results(ctx domain.Context, interviewID, userID string) (usecase.InterviewResults, error)
	Fetch(ctx domain.Context, interviewID, userID, ifNoneMatch string) (int, usecase.InterviewResults, string, error)
}

// MediaUploader stores recorded answers.
type MediaUploader interface {
	Upload(ctx domain.Context, userID, filename string, data []byte) (domain.MediaObject, error)
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies. Media is nil when object storage
// is not configured.
type Server struct {
	Cfg        config.Config
	Answers    AnswerSubmitter
	Interviews InterviewManager
	Results    ResultReader
	Media      MediaUploader
	Exporter   xlsx.Exporter
	Checks     []ReadinessCheck
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, answers AnswerSubmitter, interviews InterviewManager, results ResultReader, media MediaUploader, checks ...ReadinessCheck) *Server {
	return &Server{
		Cfg:        cfg,
		Answers:    answers,
		Interviews: interviews,
		Results:    results,
		Media:      media,
		Exporter:   xlsx.NewExporter(),
		Checks:     checks,
	}
}

type mainAnswerResponse struct {
	Success             bool         `json:"success"`
	Answer              *answerDTO   `json:"answer"`
	Analysis            analysisDTO  `json:"analysis"`
	NextQuestion        *followUpDTO `json:"nextQuestion"`
	EligibleForFollowUp bool         `json:"eligibleForFollowUp"`
}

type followUpAnswerResponse struct {
	Success  bool        `json:"success"`
	Answer   *answerDTO  `json:"answer"`
	Analysis analysisDTO `json:"analysis"`
}

// SubmitMainAnswerHandler handles POST /answer.
func (s *Server) SubmitMainAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mainAnswerRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Answers.SubmitMain(r.Context(), userIDFrom(r), usecase.MainAnswerInput{
			QuestionID: req.QuestionID,
			AnswerText: req.AnswerText,
			MediaRef:   req.MediaRef,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		observability.ObserveAnswerScore(usecase.ItemMain, res.Analysis.Score, res.MaxScore)
		if res.EligibleForFollowUp {
			observability.CountFollowUp(res.FollowUpSource)
		}
		out := mainAnswerResponse{
			Success:             true,
			Answer:              toAnswerDTO(&res.Answer),
			Analysis:            toAnalysisDTO(res.Analysis, res.MaxScore, res.FallbackUsed),
			EligibleForFollowUp: res.EligibleForFollowUp,
		}
		if res.NextQuestion != nil {
			f := toFollowUpDTO(*res.NextQuestion)
			out.NextQuestion = &f
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// SubmitFollowUpAnswerHandler handles PUT /answer.
func (s *Server) SubmitFollowUpAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req followUpAnswerRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Answers.SubmitFollowUp(r.Context(), userIDFrom(r), usecase.FollowUpAnswerInput{
			FollowUpQuestionID: req.FollowUpQuestionID,
			AnswerText:         req.AnswerText,
			MediaRef:           req.MediaRef,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		observability.ObserveAnswerScore(usecase.ItemFollowUp, res.Analysis.Score, res.MaxScore)
		writeJSON(w, http.StatusOK, followUpAnswerResponse{
			Success:  true,
			Answer:   toAnswerDTO(&res.Answer),
			Analysis: toAnalysisDTO(res.Analysis, res.MaxScore, res.FallbackUsed),
		})
	}
}

// CreateInterviewHandler handles POST /interview.
func (s *Server) CreateInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInterviewRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		iv, err := s.Interviews.Create(r.Context(), userIDFrom(r), usecase.CreateInterviewInput{
			JobPosition:     req.JobPosition,
			JobDescription:  req.JobDescription,
			Skills:          req.Skills,
			JobExperience:   req.JobExperience,
			DifficultyLevel: req.DifficultyLevel,
			TotalQuestions:  req.TotalQuestions,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "interview": toInterviewDTO(iv)})
	}
}

// ListInterviewsHandler handles GET /interview.
func (s *Server) ListInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ivs, err := s.Interviews.List(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]interviewDTO, 0, len(ivs))
		for _, iv := range ivs {
			out = append(out, toInterviewDTO(iv))
		}
		writeJSON(w, http.StatusOK, map[string]any{"interviews": out})
	}
}

// GetInterviewHandler handles GET /interview/{id}.
func (s *Server) GetInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		iv, err := s.Interviews.Get(r.Context(), id, userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"interview": toInterviewDTO(iv)})
	}
}

// DeleteInterviewHandler handles DELETE /interview/{id}.
func (s *Server) DeleteInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.Interviews.Delete(r.Context(), id, userIDFrom(r)); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// ResultsHandler handles GET /interview/{id}/results. JSON responses carry an
// ETag; format=xlsx downloads the same results as a workbook.
func (s *Server) ResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		switch strings.ToLower(r.URL.Query().Get("format")) {
		case "", "json":
		case "xlsx":
			s.writeResultsXLSX(w, r, id)
			return
		default:
			writeError(w, r, fmt.Errorf("%w: format must be json or xlsx", domain.ErrInvalidArgument), nil)
			return
		}
		status, res, etag, err := s.Results.Fetch(ctx, id, userIDFrom(r), r.Header.Get("If-None-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, no-cache")
		if status == http.StatusNotModified {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, res)
	}
}

func (s *Server) writeResultsXLSX(w http.ResponseWriter, r *http.Request, id string) {
	res, err := s.Results.Results(r.Context(), id, userIDFrom(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	buf, err := s.Exporter.Export(res)
	if err != nil {
		writeError(w, r, fmt.Errorf("op=http.results_xlsx: %w", err), nil)
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="interview-%s-results.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// UploadMediaHandler handles POST /media with a multipart "file" field.
func (s *Server) UploadMediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Media == nil {
			writeError(w, r, fmt.Errorf("%w: media storage not configured", domain.ErrNotFound), nil)
			return
		}
		maxBytes := s.Cfg.MaxMediaMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		file, hdr, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "PAYLOAD_TOO_LARGE",
					Message: fmt.Sprintf("recording exceeds %d MB", s.Cfg.MaxMediaMB),
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: multipart field file required", domain.ErrInvalidArgument), nil)
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read upload", domain.ErrInvalidArgument), nil)
			return
		}
		obj, err := s.Media.Upload(r.Context(), userIDFrom(r), hdr.Filename, data)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, mediaDTO{MediaRef: obj.Ref, ContentType: obj.ContentType, Size: obj.Size})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes every configured dependency.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		st := http.StatusOK
		for _, c := range s.Checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				LoggerFrom(r).Warn("readiness check failed", slog.String("check", c.Name), slog.Any("error", err))
				checks = append(checks, check{Name: c.Name, OK: false, Details: err.Error()})
				st = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
		return "", false
	}
	return id, true
}
