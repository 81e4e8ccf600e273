package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	"github.com/fairyhunter13/ai-mock-interview/internal/observability"
)

// allowedMedia maps accepted recording types to their stored extension.
var allowedMedia = map[string]string{
	"video/webm":       ".webm",
	"audio/webm":       ".webm",
	"video/x-matroska": ".webm",
	"video/mp4":        ".mp4",
	"audio/mp4":        ".m4a",
	"audio/ogg":        ".ogg",
	"video/ogg":        ".ogv",
	"audio/mpeg":       ".mp3",
	"audio/wav":        ".wav",
}

// MediaService stores recorded answers and returns references to them.
type MediaService struct {
	Store    domain.MediaStore
	MaxBytes int64
}

// NewMediaService constructs a MediaService.
func NewMediaService(store domain.MediaStore, maxBytes int64) MediaService {
	return MediaService{Store: store, MaxBytes: maxBytes}
}

// Upload validates the recording by content and stores it under the caller's prefix.
func (s MediaService) Upload(ctx domain.Context, userID, filename string, data []byte) (domain.MediaObject, error) {
	if userID == "" {
		return domain.MediaObject{}, fmt.Errorf("op=media.Upload: %w", domain.ErrUnauthenticated)
	}
	if len(data) == 0 {
		return domain.MediaObject{}, fmt.Errorf("%w: empty recording", domain.ErrInvalidArgument)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return domain.MediaObject{}, fmt.Errorf("%w: recording exceeds %d bytes", domain.ErrInvalidArgument, s.MaxBytes)
	}
	mt := mimetype.Detect(data)
	ct, ext, ok := mediaType(mt)
	if !ok {
		return domain.MediaObject{}, fmt.Errorf("%w: unsupported media type %s", domain.ErrInvalidArgument, mt.String())
	}
	key := userID + "/" + uuid.New().String() + ext
	if err := s.Store.Put(ctx, key, ct, data); err != nil {
		return domain.MediaObject{}, fmt.Errorf("op=media.Upload: %w: %w", domain.ErrPersistence, err)
	}
	observability.LoggerFromContext(ctx).Info("media stored",
		slog.String("media_ref", key),
		slog.String("content_type", ct),
		slog.String("filename", filename),
		slog.Int("size", len(data)))
	return domain.MediaObject{Ref: key, ContentType: ct, Size: int64(len(data))}, nil
}

// mediaType walks the detected type and its parents until an allowed one is found.
func mediaType(mt *mimetype.MIME) (string, string, bool) {
	for m := mt; m != nil; m = m.Parent() {
		ct := strings.ToLower(strings.SplitN(m.String(), ";", 2)[0])
		if ext, ok := allowedMedia[ct]; ok {
			return ct, ext, true
		}
	}
	return "", "", false
}
