package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

// MalformedResponseError reports an LLM answer that does not match the score schema.
type MalformedResponseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed scoring response: %s: %s", e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("malformed scoring response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

type rawScores struct {
	NoveltyScore         *float64 `json:"novelty_score"`
	ComplementarityScore *float64 `json:"complementarity_score"`
	MarketabilityScore   *float64 `json:"marketability_score"`
	OverallScore         *float64 `json:"overall_score"`
}

// ParseScores decodes an LLM answer into Scores. Every key must be present
// and within [0,5]; nothing is defaulted.
func ParseScores(raw string) (domain.Scores, error) {
	var rs rawScores
	if err := json.Unmarshal([]byte(StripFences(raw)), &rs); err != nil {
		return domain.Scores{}, &MalformedResponseError{Raw: raw, Reason: "invalid json", Err: err}
	}

	var missing []string
	for name, v := range map[string]*float64{
		"novelty_score":         rs.NoveltyScore,
		"complementarity_score": rs.ComplementarityScore,
		"marketability_score":   rs.MarketabilityScore,
		"overall_score":         rs.OverallScore,
	} {
		if v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.Scores{}, &MalformedResponseError{Raw: raw, Reason: fmt.Sprintf("missing %d score keys", len(missing))}
	}

	scores := domain.Scores{
		NoveltyScore:         *rs.NoveltyScore,
		ComplementarityScore: *rs.ComplementarityScore,
		MarketabilityScore:   *rs.MarketabilityScore,
		OverallScore:         *rs.OverallScore,
	}
	if err := scores.Validate(); err != nil {
		return domain.Scores{}, &MalformedResponseError{Raw: raw, Reason: "score out of range", Err: err}
	}

	return scores, nil
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
