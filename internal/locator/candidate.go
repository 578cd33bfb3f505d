// internal/locator/candidate.go
package locator

import (
	"regexp"
	"strings"
)

// Kind is the resolution dialect a candidate's type label maps to.
type Kind string

const (
	KindID         Kind = "ID"
	KindName       Kind = "Name"
	KindClassName  Kind = "Class Name"
	KindTagName    Kind = "Tag Name"
	KindCSS        Kind = "CSS Selector"
	KindXPath      Kind = "XPath"
	KindText       Kind = "Text"
	KindLinkText   Kind = "Link Text"
	KindDataTestID Kind = "Data Test ID"
	// KindUnknown labels are resolved as XPath first, then as CSS.
	KindUnknown Kind = ""
)

// Type labels emitted by the generator.
const (
	LabelID            = "ID"
	LabelDataTestID    = "Data Test ID"
	LabelName          = "Name"
	LabelClassName     = "Class Name"
	LabelCSSClasses    = "CSS Selector (Classes)"
	LabelCSS           = "CSS Selector"
	LabelCSSTypeName   = "CSS Selector (Type+Name)"
	LabelCSSHint       = "CSS Selector (Placeholder)"
	LabelXPath         = "XPath"
	LabelXPathText     = "XPath (Text)"
	LabelXPathContains = "XPath (Contains Text)"
	LabelXPathType     = "XPath (Type)"
	LabelTagName       = "Tag Name"
	LabelText          = "Text (Playwright)"
	LabelLinkText      = "Link Text"
)

// DataTestAttributes are checked in this order by generation and verification.
var DataTestAttributes = []string{"data-testid", "data-test-id", "data-test"}

// Code holds ready-to-paste snippets for the supported automation frameworks.
type Code struct {
	Selenium     string `json:"selenium"`
	SeleniumJava string `json:"seleniumJava,omitempty"`
	Playwright   string `json:"playwright"`
	Cypress      string `json:"cypress"`
}

// Candidate is one proposed locator.
type Candidate struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Priority int    `json:"priority,omitempty"`
	Code     Code   `json:"code"`
}

var annotationSuffix = regexp.MustCompile(`\s*\(.*?\)\s*$`)

// NormalizeLabel strips a trailing parenthesised annotation such as "(AI)".
func NormalizeLabel(label string) string {
	return strings.TrimSpace(annotationSuffix.ReplaceAllString(label, ""))
}

// Kind maps the candidate's type label to a resolution dialect.
func (c Candidate) Kind() Kind {
	return KindOf(c.Type)
}

// KindOf classifies a type label. The checks run in a fixed order, so a label mentioning both
// CSS and XPath resolves as CSS.
func KindOf(label string) Kind {
	norm := NormalizeLabel(label)
	switch {
	case norm == "ID":
		return KindID
	case norm == "Name":
		return KindName
	case norm == "Class Name" || norm == "Class":
		return KindClassName
	case norm == "Tag Name" || norm == "Tag":
		return KindTagName
	case strings.Contains(norm, "CSS"):
		return KindCSS
	case strings.Contains(norm, "XPath"):
		return KindXPath
	case norm == "Text" || strings.Contains(norm, "Playwright"):
		return KindText
	case norm == "Link Text":
		return KindLinkText
	case norm == "Data Test ID":
		return KindDataTestID
	}
	return KindUnknown
}
