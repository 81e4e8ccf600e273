package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

const (
	fallbackFeedback = "Unable to generate detailed analysis."
	missingFeedback  = "No specific feedback provided."
)

// label matches "Name:" tolerating markdown emphasis such as "**Name:**" and
// a parenthetical like "Score (out of 10):". The match may continue onto the
// following lines.
func label(name string) string {
	return `(?i)\**\s*` + name + `(?:\s*\([^)\n]*\))?\s*\**\s*:\s*\**[ \t]*`
}

// inlineLabel is label whose value must start on the same line.
func inlineLabel(name string) string {
	return `(?i)\**\s*` + name + `(?:\s*\([^)\n]*\))?\s*\**\s*:[ \t]*\**[ \t]*`
}

var (
	reScore      = regexp.MustCompile(label(`score`) + `(\d+)`)
	reFeedback   = regexp.MustCompile(label(`feedback`))
	reKeyPoints  = regexp.MustCompile(label(`key\s+points`))
	reVoiceTone  = regexp.MustCompile(inlineLabel(`voice\s+tone`) + `([^\n]+)`)
	reConfidence = regexp.MustCompile(inlineLabel(`confidence`) + `([^\n]+)`)
	// reBlankLine ends a key points list when prose, not another bullet, follows.
	reBlankLine = regexp.MustCompile(`\n[ \t]*\n\s*[^-•*\s]`)
	// reNextLabel finds where the feedback section ends.
	reNextLabel = regexp.MustCompile(`(?i)(?:^|\n|\s)\**\s*(?:score|feedback|key\s+points|voice\s+tone|confidence|strengths|areas\s+of\s+improvement|weaknesses)(?:\s*\([^)\n]*\))?\s*\**\s*:`)
	// reDashBoundary is an en/em dash or a hyphen opening a list item.
	reDashBoundary = regexp.MustCompile(`[–—]|(?:^|\s)-\s`)
)

// ParseAnalysis converts a raw model evaluation into an AnalysisResult.
// Pass nil when the model call failed; the result then carries the fallback score.
// Every field degrades independently. The function is pure.
func ParseAnalysis(raw *string, maxScore int) domain.AnalysisResult {
	half := maxScore / 2
	if raw == nil {
		return domain.AnalysisResult{
			Score:            half,
			Feedback:         fallbackFeedback,
			MatchedKeyPoints: []string{},
		}
	}
	text := *raw
	res := domain.AnalysisResult{
		Score:            parseScore(text, half),
		Feedback:         parseFeedback(text),
		MatchedKeyPoints: parseKeyPoints(text),
		VoiceTone:        parseLine(reVoiceTone, text),
		Confidence:       parseLine(reConfidence, text),
	}
	if res.Score > maxScore {
		res.Score = maxScore
	}
	return res
}

func parseScore(text string, def int) int {
	m := reScore.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// overflow: treat as a very large score, clamped by the caller
		return int(^uint(0) >> 1)
	}
	return n
}

func parseFeedback(text string) string {
	loc := reFeedback.FindStringIndex(text)
	if loc == nil {
		return missingFeedback
	}
	rest := text[loc[1]:]
	if next := reNextLabel.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	if dash := reDashBoundary.FindStringIndex(rest); dash != nil {
		rest = rest[:dash[0]]
	}
	rest = strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "*"))
	if rest == "" {
		return missingFeedback
	}
	return rest
}

func parseKeyPoints(text string) []string {
	out := []string{}
	loc := reKeyPoints.FindStringIndex(text)
	if loc == nil {
		return out
	}
	rest := text[loc[1]:]
	if next := reNextLabel.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	rest = strings.TrimLeft(rest, " \t\r\n")
	if blank := reBlankLine.FindStringIndex(rest); blank != nil {
		rest = rest[:blank[0]]
	}
	for _, part := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == '\n' }) {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-•"))
		part = strings.TrimSpace(strings.Trim(part, "*"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLine(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
	if v == "" {
		return nil
	}
	return &v
}
