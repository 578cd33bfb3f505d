// internal/locator/generator.go
package locator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultInteractiveTags are the tags for which a bare tag-name locator is emitted.
var DefaultInteractiveTags = []string{"button", "input", "select", "textarea", "a", "img"}

const (
	defaultMaxTextXPath   = 50
	defaultMaxTextLocator = 100
)

// Strategy derives zero or more candidates from a record.
type Strategy struct {
	Name     string
	Priority int
	Generate func(g *Generator, rec ElementRecord) []Candidate
}

// Generator runs the strategy battery over an ElementRecord.
// It holds no per-call state and is safe for concurrent use.
type Generator struct {
	logger          *zap.Logger
	classifier      Classifier
	interactiveTags map[string]struct{}
	maxTextXPath    int
	maxTextLocator  int
	strategies      []Strategy
}

// Option configures a Generator.
type Option func(*Generator)

// WithClassifier swaps the volatility rules used by the class-name strategy.
func WithClassifier(c Classifier) Option {
	return func(g *Generator) {
		if c != nil {
			g.classifier = c
		}
	}
}

// WithInteractiveTags replaces the tag-name allow-list.
func WithInteractiveTags(tags []string) Option {
	return func(g *Generator) {
		if len(tags) == 0 {
			return
		}
		g.interactiveTags = make(map[string]struct{}, len(tags))
		for _, t := range tags {
			g.interactiveTags[strings.ToLower(t)] = struct{}{}
		}
	}
}

// WithTextLimits sets the exclusive length limits for text-based path candidates and
// text locators. Non-positive values keep the defaults.
func WithTextLimits(xpathText, locatorText int) Option {
	return func(g *Generator) {
		if xpathText > 0 {
			g.maxTextXPath = xpathText
		}
		if locatorText > 0 {
			g.maxTextLocator = locatorText
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator builds a Generator with the default strategy order.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		logger:         zap.NewNop(),
		classifier:     DefaultClassifier,
		maxTextXPath:   defaultMaxTextXPath,
		maxTextLocator: defaultMaxTextLocator,
	}
	WithInteractiveTags(DefaultInteractiveTags)(g)
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("locator.generator")
	g.strategies = []Strategy{
		{Name: "id", Priority: 1, Generate: (*Generator).byID},
		{Name: "data-test-id", Priority: 2, Generate: (*Generator).byDataTestID},
		{Name: "name", Priority: 3, Generate: (*Generator).byName},
		{Name: "class-name", Priority: 4, Generate: (*Generator).byClassName},
		{Name: "css-selector", Priority: 5, Generate: (*Generator).byCSSSelector},
		{Name: "xpath", Priority: 6, Generate: (*Generator).byXPath},
		{Name: "tag-name", Priority: 7, Generate: (*Generator).byTagName},
		{Name: "text", Priority: 8, Generate: (*Generator).byText},
		{Name: "link-text", Priority: 9, Generate: (*Generator).byLinkText},
	}
	return g
}

// Strategies returns the strategy battery in execution order.
func (g *Generator) Strategies() []Strategy {
	out := make([]Strategy, len(g.strategies))
	copy(out, g.strategies)
	return out
}

// Generate runs every strategy in priority order and concatenates their output.
// Candidates are neither deduplicated nor checked for uniqueness here.
func (g *Generator) Generate(rec ElementRecord) []Candidate {
	var out []Candidate
	for _, s := range g.strategies {
		produced := s.Generate(g, rec)
		for i := range produced {
			produced[i].Priority = s.Priority
		}
		out = append(out, produced...)
	}
	g.logger.Debug("Generated locator candidates.",
		zap.String("tag", rec.TagName),
		zap.Int("count", len(out)))
	return out
}

func (g *Generator) byID(rec ElementRecord) []Candidate {
	id := rec.Attr("id")
	if id == "" {
		return nil
	}
	return []Candidate{{
		Type:  LabelID,
		Value: id,
		Code: Code{
			Selenium:   fmt.Sprintf("driver.find_element(By.ID, %s)", QuoteLiteral(id)),
			Playwright: fmt.Sprintf("page.locator(%s)", QuoteLiteral("#"+cssEscape(id))),
			Cypress:    fmt.Sprintf("cy.get(%s)", QuoteLiteral("#"+cssEscape(id))),
		},
	}}
}

func (g *Generator) byDataTestID(rec ElementRecord) []Candidate {
	for _, attr := range DataTestAttributes {
		v := rec.Attr(attr)
		if v == "" {
			continue
		}
		sel := fmt.Sprintf("[%s=%s]", attr, cssString(v))
		return []Candidate{{Type: LabelDataTestID, Value: v, Code: selectorCode(sel)}}
	}
	return nil
}

func (g *Generator) byName(rec ElementRecord) []Candidate {
	name := rec.Attr("name")
	if name == "" {
		return nil
	}
	sel := "[name=" + cssString(name) + "]"
	return []Candidate{{
		Type:  LabelName,
		Value: name,
		Code: Code{
			Selenium:   fmt.Sprintf("driver.find_element(By.NAME, %s)", QuoteLiteral(name)),
			Playwright: fmt.Sprintf("page.locator(%s)", QuoteLiteral(sel)),
			Cypress:    fmt.Sprintf("cy.get(%s)", QuoteLiteral(sel)),
		},
	}}
}

// byClassName emits one candidate per stable token. The compound selector over every token is
// added when there are several tokens, or when volatility filtering left nothing else.
func (g *Generator) byClassName(rec ElementRecord) []Candidate {
	tokens := strings.Fields(rec.Attr("class"))
	if len(tokens) == 0 {
		return nil
	}
	var out []Candidate
	for _, tok := range tokens {
		if g.classifier.IsVolatile(tok) {
			continue
		}
		sel := "." + cssEscape(tok)
		out = append(out, Candidate{
			Type:  LabelClassName,
			Value: tok,
			Code: Code{
				Selenium:   fmt.Sprintf("driver.find_element(By.CLASS_NAME, %s)", QuoteLiteral(tok)),
				Playwright: fmt.Sprintf("page.locator(%s)", QuoteLiteral(sel)),
				Cypress:    fmt.Sprintf("cy.get(%s)", QuoteLiteral(sel)),
			},
		})
	}
	if len(tokens) > 1 || len(out) == 0 {
		escaped := make([]string, len(tokens))
		for i, tok := range tokens {
			escaped[i] = cssEscape(tok)
		}
		sel := "." + strings.Join(escaped, ".")
		out = append(out, Candidate{Type: LabelCSSClasses, Value: sel, Code: selectorCode(sel)})
	}
	return out
}

func (g *Generator) byCSSSelector(rec ElementRecord) []Candidate {
	var out []Candidate
	if rec.CSSSelector != "" {
		out = append(out, Candidate{Type: LabelCSS, Value: rec.CSSSelector, Code: selectorCode(rec.CSSSelector)})
	}
	typ, name := rec.Attr("type"), rec.Attr("name")
	if typ != "" && name != "" {
		sel := fmt.Sprintf("%s[type=%s][name=%s]", rec.TagName, cssString(typ), cssString(name))
		out = append(out, Candidate{Type: LabelCSSTypeName, Value: sel, Code: selectorCode(sel)})
	}
	if hint := rec.Attr("placeholder"); hint != "" {
		sel := fmt.Sprintf("%s[placeholder=%s]", rec.TagName, cssString(hint))
		out = append(out, Candidate{Type: LabelCSSHint, Value: sel, Code: selectorCode(sel)})
	}
	return out
}

func (g *Generator) byXPath(rec ElementRecord) []Candidate {
	var out []Candidate
	if rec.XPath != "" {
		out = append(out, Candidate{Type: LabelXPath, Value: rec.XPath, Code: xpathCode(rec.XPath)})
	}
	if rec.Text != "" && utf8.RuneCountInString(rec.Text) < g.maxTextXPath {
		lit := xpathLiteral(rec.Text)
		exact := fmt.Sprintf("//%s[text()=%s]", rec.TagName, lit)
		contains := fmt.Sprintf("//%s[contains(text(), %s)]", rec.TagName, lit)
		out = append(out,
			Candidate{Type: LabelXPathText, Value: exact, Code: xpathCode(exact)},
			Candidate{Type: LabelXPathContains, Value: contains, Code: xpathCode(contains)},
		)
	}
	if typ := rec.Attr("type"); typ != "" {
		expr := fmt.Sprintf("//%s[@type=%s]", rec.TagName, xpathLiteral(typ))
		out = append(out, Candidate{Type: LabelXPathType, Value: expr, Code: xpathCode(expr)})
	}
	return out
}

func (g *Generator) byTagName(rec ElementRecord) []Candidate {
	if _, ok := g.interactiveTags[rec.TagName]; !ok {
		return nil
	}
	return []Candidate{{
		Type:  LabelTagName,
		Value: rec.TagName,
		Code: Code{
			Selenium:   fmt.Sprintf("driver.find_element(By.TAG_NAME, %s)", QuoteLiteral(rec.TagName)),
			Playwright: fmt.Sprintf("page.locator(%s)", QuoteLiteral(rec.TagName)),
			Cypress:    fmt.Sprintf("cy.get(%s)", QuoteLiteral(rec.TagName)),
		},
	}}
}

func (g *Generator) byText(rec ElementRecord) []Candidate {
	if rec.Text == "" || utf8.RuneCountInString(rec.Text) >= g.maxTextLocator {
		return nil
	}
	return []Candidate{{
		Type:  LabelText,
		Value: rec.Text,
		Code: Code{
			Selenium:   fmt.Sprintf("driver.find_element(By.XPATH, %s)", QuoteLiteral(textXPath(rec.Text))),
			Playwright: fmt.Sprintf("page.getByText(%s)", QuoteLiteral(rec.Text)),
			Cypress:    fmt.Sprintf("cy.contains(%s)", QuoteLiteral(rec.Text)),
		},
	}}
}

func (g *Generator) byLinkText(rec ElementRecord) []Candidate {
	if rec.TagName != "a" || rec.Text == "" {
		return nil
	}
	return []Candidate{{
		Type:  LabelLinkText,
		Value: rec.Text,
		Code: Code{
			Selenium:   fmt.Sprintf("driver.find_element(By.LINK_TEXT, %s)", QuoteLiteral(rec.Text)),
			Playwright: fmt.Sprintf("page.getByRole(\"link\", { name: %s })", QuoteLiteral(rec.Text)),
			Cypress:    fmt.Sprintf("cy.contains(\"a\", %s)", QuoteLiteral(rec.Text)),
		},
	}}
}

// textXPath is the contains-text query shared by text candidates and text verification.
func textXPath(text string) string {
	return fmt.Sprintf("//*[contains(text(), %s)]", xpathLiteral(text))
}

func selectorCode(sel string) Code {
	return Code{
		Selenium:   fmt.Sprintf("driver.find_element(By.CSS_SELECTOR, %s)", QuoteLiteral(sel)),
		Playwright: fmt.Sprintf("page.locator(%s)", QuoteLiteral(sel)),
		Cypress:    fmt.Sprintf("cy.get(%s)", QuoteLiteral(sel)),
	}
}

func xpathCode(expr string) Code {
	return Code{
		Selenium:   fmt.Sprintf("driver.find_element(By.XPATH, %s)", QuoteLiteral(expr)),
		Playwright: fmt.Sprintf("page.locator(%s)", QuoteLiteral("xpath="+expr)),
		Cypress:    fmt.Sprintf("cy.xpath(%s)", QuoteLiteral(expr)),
	}
}

var literalQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// QuoteLiteral renders s as a double-quoted string literal valid in both Python and JavaScript.
func QuoteLiteral(s string) string {
	return `"` + literalQuoter.Replace(s) + `"`
}
