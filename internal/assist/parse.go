// internal/assist/parse.go
package assist

import (
	"errors"
	"regexp"
	"strings"

	"github.com/xkilldash9x/locator-cli/internal/llmutil"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// ErrNoCandidates is returned when a model reply contains no parseable locator lines.
var ErrNoCandidates = errors.New("assist: reply contained no locator candidates")

// AISuffix is appended to the type label of every model-proposed candidate.
const AISuffix = " (AI)"

var (
	numberedLine = regexp.MustCompile(`^\d+\.\s*([^:]+):\s*(.+)$`)
	plainLine    = regexp.MustCompile(`^([^:]+):\s*(.+)$`)
)

// ParseLine applies the line grammar "<n>. <Type>: <expr>" or "<Type>: <expr>" to one line.
func ParseLine(line string) (locator.Candidate, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return locator.Candidate{}, false
	}
	m := numberedLine.FindStringSubmatch(trimmed)
	if m == nil {
		m = plainLine.FindStringSubmatch(trimmed)
	}
	if m == nil {
		return locator.Candidate{}, false
	}
	typ := strings.TrimSpace(m[1])
	value := strings.TrimSpace(m[2])
	if typ == "" || value == "" {
		return locator.Candidate{}, false
	}
	return locator.Candidate{
		Type:  typ + AISuffix,
		Value: value,
		Code:  RenderCode(typ, value),
	}, true
}

// ParseCandidates extracts every candidate from a complete reply, in order of appearance.
// A reply that is a JSON array of {"type", "value"} objects is accepted as well.
func ParseCandidates(text string) []locator.Candidate {
	if llmutil.LooksLikeJSON(text) {
		if cands, ok := parseJSON(text); ok {
			return cands
		}
	}

	var out []locator.Candidate
	for _, line := range strings.Split(text, "\n") {
		if c, ok := ParseLine(line); ok {
			out = append(out, c)
		}
	}
	return out
}

type jsonCandidate struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func parseJSON(text string) ([]locator.Candidate, bool) {
	items, err := llmutil.ParseJSONResponse[[]jsonCandidate](text)
	if err != nil {
		return nil, false
	}
	out := make([]locator.Candidate, 0, len(*items))
	for _, it := range *items {
		typ := strings.TrimSpace(it.Type)
		value := strings.TrimSpace(it.Value)
		if typ == "" || value == "" {
			continue
		}
		out = append(out, locator.Candidate{Type: typ + AISuffix, Value: value, Code: RenderCode(typ, value)})
	}
	return out, true
}
