// internal/locator/stability.go
package locator

import (
	"fmt"
	"regexp"
	"strings"
)

// Classifier decides whether a class token looks machine generated and should not be used
// as a standalone locator.
type Classifier interface {
	IsVolatile(token string) bool
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(token string) bool

func (f ClassifierFunc) IsVolatile(token string) bool { return f(token) }

type rule struct {
	name    string
	pattern *regexp.Regexp
	// needsDigit restricts the rule to tokens (or the captured group) containing a digit.
	needsDigit bool
}

var defaultRules = []rule{
	// a1b2c3d4, Xy7Qp9Lm
	{name: "hash", pattern: regexp.MustCompile(`^([a-zA-Z0-9]{8,})$`), needsDigit: true},
	// _3kF9a
	{name: "underscore", pattern: regexp.MustCompile(`^_[a-zA-Z0-9]+$`)},
	// btn-x7h2q, card-1a2b3c
	{name: "word-hash", pattern: regexp.MustCompile(`^[a-zA-Z]+-([a-zA-Z0-9]{5,})$`), needsDigit: true},
	// Button_primary__3xYz1
	{name: "css-modules", pattern: regexp.MustCompile(`^[A-Za-z0-9]+_[A-Za-z0-9-]+__[A-Za-z0-9_-]{5}$`)},
	// css-1x2y3z, makeStyles-root-12, sc-AxjAm
	{name: "css-in-js", pattern: regexp.MustCompile(`^(css|sc|jsx|emotion)-[a-zA-Z0-9]+$|^makeStyles-`)},
	// jss42
	{name: "jss", pattern: regexp.MustCompile(`^jss\d+$`)},
}

// PatternClassifier flags tokens matching any of its rules.
type PatternClassifier struct {
	rules []rule
}

// DefaultClassifier is the built-in rule set.
var DefaultClassifier = &PatternClassifier{rules: defaultRules}

// NewPatternClassifier extends the built-in rules with additional regular expressions.
func NewPatternClassifier(extra ...string) (*PatternClassifier, error) {
	rules := make([]rule, len(defaultRules), len(defaultRules)+len(extra))
	copy(rules, defaultRules)
	for i, expr := range extra {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid volatile pattern #%d %q: %w", i, expr, err)
		}
		rules = append(rules, rule{name: fmt.Sprintf("custom-%d", i), pattern: re})
	}
	return &PatternClassifier{rules: rules}, nil
}

// IsVolatile reports whether token matches one of the rules.
func (c *PatternClassifier) IsVolatile(token string) bool {
	_, ok := c.Match(token)
	return ok
}

// Match returns the name of the first rule that matches token.
func (c *PatternClassifier) Match(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for _, r := range c.rules {
		m := r.pattern.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		if r.needsDigit {
			subject := m[0]
			if len(m) > 1 {
				subject = m[1]
			}
			if !strings.ContainsAny(subject, "0123456789") {
				continue
			}
		}
		return r.name, true
	}
	return "", false
}

// IsVolatile classifies token with the built-in rules.
func IsVolatile(token string) bool {
	return DefaultClassifier.IsVolatile(token)
}
