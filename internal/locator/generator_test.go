package locator_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

func snapshotOf(t *testing.T, page, target string) (*dom.Document, locator.ElementRecord) {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	n := htmlquery.FindOne(doc.Root(), target)
	require.NotNil(t, n, "test setup error: %s not found", target)
	return doc, locator.Snapshot(doc, n, locator.SnapshotOptions{})
}

func types(cs []locator.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Type
	}
	return out
}

func find(cs []locator.Candidate, label string) (locator.Candidate, bool) {
	for _, c := range cs {
		if c.Type == label {
			return c, true
		}
	}
	return locator.Candidate{}, false
}

func TestGenerateButtonScenario(t *testing.T) {
	doc, rec := snapshotOf(t, `<html><body><button id="submit-1">Save</button></body></html>`, "//button")
	cs := locator.NewGenerator().Generate(rec)

	id, ok := find(cs, locator.LabelID)
	require.True(t, ok)
	assert.Equal(t, "submit-1", id.Value)
	assert.Equal(t, 1, id.Priority)
	assert.Equal(t, `driver.find_element(By.ID, "submit-1")`, id.Code.Selenium)
	assert.Equal(t, `page.locator("#submit-1")`, id.Code.Playwright)

	text, ok := find(cs, locator.LabelText)
	require.True(t, ok)
	assert.Equal(t, "Save", text.Value)
	assert.Equal(t, locator.KindText, text.Kind())

	_, ok = find(cs, locator.LabelLinkText)
	assert.False(t, ok, "link text is reserved for anchors")

	res := locator.NewEngine(doc, nil).Verify(id)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, locator.StatusUnique, res.Status())
}

func TestGenerateVolatileClassScenario(t *testing.T) {
	page := `<html><body><div class="css-x7h2q">a</div><div class="css-x7h2q">b</div><div class="css-x7h2q">c</div></body></html>`
	doc, rec := snapshotOf(t, page, "//div[2]")
	cs := locator.NewGenerator().Generate(rec)

	_, ok := find(cs, locator.LabelClassName)
	assert.False(t, ok, "volatile tokens must not become class-name candidates")

	compound, ok := find(cs, locator.LabelCSSClasses)
	require.True(t, ok)
	assert.Equal(t, ".css-x7h2q", compound.Value)

	res := locator.NewEngine(doc, nil).Verify(compound)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, locator.StatusAmbiguous, res.Status())
}

func TestGenerateStrategyOrder(t *testing.T) {
	page := `<html><body><form>
		<input type="email" name="email" placeholder="you@example.com" class="form-control input-lg" data-testid="email-input">
	</form></body></html>`
	doc, rec := snapshotOf(t, page, "//input")
	cs := locator.NewGenerator().Generate(rec)

	assert.Equal(t, []string{
		locator.LabelDataTestID,
		locator.LabelName,
		locator.LabelClassName,
		locator.LabelClassName,
		locator.LabelCSSClasses,
		locator.LabelCSS,
		locator.LabelCSSTypeName,
		locator.LabelCSSHint,
		locator.LabelXPath,
		locator.LabelXPathType,
		locator.LabelTagName,
	}, types(cs))

	values := make(map[string]string)
	for _, c := range cs {
		if _, seen := values[c.Type]; !seen {
			values[c.Type] = c.Value
		}
	}
	assert.Equal(t, "email-input", values[locator.LabelDataTestID])
	assert.Equal(t, "form-control", values[locator.LabelClassName])
	assert.Equal(t, ".form-control.input-lg", values[locator.LabelCSSClasses])
	assert.Equal(t, "body > form > input", values[locator.LabelCSS])
	assert.Equal(t, `input[type="email"][name="email"]`, values[locator.LabelCSSTypeName])
	assert.Equal(t, `input[placeholder="you@example.com"]`, values[locator.LabelCSSHint])
	assert.Equal(t, "/html/body/form/input", values[locator.LabelXPath])
	assert.Equal(t, `//input[@type="email"]`, values[locator.LabelXPathType])
	assert.Equal(t, "input", values[locator.LabelTagName])

	for i := 1; i < len(cs); i++ {
		assert.LessOrEqual(t, cs[i-1].Priority, cs[i].Priority, "priorities must be non-decreasing")
	}

	// On this page every generated candidate happens to be unique.
	engine := locator.NewEngine(doc, nil)
	for _, c := range cs {
		assert.Equal(t, 1, engine.Verify(c).Count, "%s %q", c.Type, c.Value)
	}
}

func TestGenerateAnchor(t *testing.T) {
	doc, rec := snapshotOf(t, `<html><body><nav><a href="/docs">Read the docs</a></nav></body></html>`, "//a")
	cs := locator.NewGenerator().Generate(rec)

	link, ok := find(cs, locator.LabelLinkText)
	require.True(t, ok)
	assert.Equal(t, "Read the docs", link.Value)
	assert.Equal(t, `page.getByRole("link", { name: "Read the docs" })`, link.Code.Playwright)

	exact, ok := find(cs, locator.LabelXPathText)
	require.True(t, ok)
	assert.Equal(t, `//a[text()="Read the docs"]`, exact.Value)

	contains, ok := find(cs, locator.LabelXPathContains)
	require.True(t, ok)
	assert.Equal(t, `//a[contains(text(), "Read the docs")]`, contains.Value)
	assert.Equal(t, `page.locator("xpath=//a[contains(text(), \"Read the docs\")]")`, contains.Code.Playwright)

	engine := locator.NewEngine(doc, nil)
	for _, c := range []locator.Candidate{link, exact, contains} {
		assert.Equal(t, 1, engine.Verify(c).Count, c.Type)
	}
}

func TestGenerateTextLimits(t *testing.T) {
	g := locator.NewGenerator()

	medium := locator.ElementRecord{TagName: "p", Text: strings.Repeat("m", 60)}
	cs := g.Generate(medium)
	_, ok := find(cs, locator.LabelXPathText)
	assert.False(t, ok, "text of 50 or more characters gets no text path")
	_, ok = find(cs, locator.LabelText)
	assert.True(t, ok)

	long := locator.ElementRecord{TagName: "p", Text: strings.Repeat("l", 100)}
	_, ok = find(g.Generate(long), locator.LabelText)
	assert.False(t, ok, "text locators need fewer than 100 characters")

	tight := locator.NewGenerator(locator.WithTextLimits(5, 5))
	_, ok = find(tight.Generate(locator.ElementRecord{TagName: "p", Text: "hello"}), locator.LabelText)
	assert.False(t, ok)
}

func TestGenerateOptions(t *testing.T) {
	rec := locator.ElementRecord{TagName: "div", Attributes: map[string]string{"class": "card featured"}}

	rejectAll := locator.NewGenerator(locator.WithClassifier(locator.ClassifierFunc(func(string) bool { return true })))
	assert.Equal(t, []string{locator.LabelCSSClasses}, types(rejectAll.Generate(rec)))

	withDiv := locator.NewGenerator(locator.WithInteractiveTags([]string{"DIV"}))
	tag, ok := find(withDiv.Generate(rec), locator.LabelTagName)
	require.True(t, ok)
	assert.Equal(t, "div", tag.Value)

	_, ok = find(locator.NewGenerator().Generate(rec), locator.LabelTagName)
	assert.False(t, ok)
}

func TestGenerateDataTestPrecedence(t *testing.T) {
	rec := locator.ElementRecord{TagName: "div", Attributes: map[string]string{
		"data-test":    "third",
		"data-test-id": "second",
	}}
	c, ok := find(locator.NewGenerator().Generate(rec), locator.LabelDataTestID)
	require.True(t, ok)
	assert.Equal(t, "second", c.Value)
	assert.Equal(t, `page.locator("[data-test-id=\"second\"]")`, c.Code.Playwright)
}

func TestGenerateEmptyRecord(t *testing.T) {
	assert.Empty(t, locator.NewGenerator().Generate(locator.ElementRecord{}))
}

func TestGenerateIsDeterministic(t *testing.T) {
	_, rec := snapshotOf(t, `<html><body><main>
		<a id="home" class="nav-link active" name="home" href="/" data-test="nav">Home</a>
	</main></body></html>`, "//a")
	g := locator.NewGenerator()

	first := g.Generate(rec)
	second := g.Generate(rec)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Generate is not deterministic (-first +second):\n%s", diff)
	}
	assert.Len(t, g.Strategies(), 9)
}
