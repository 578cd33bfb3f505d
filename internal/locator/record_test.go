package locator_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

func TestSnapshot(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><form><input type="email" name="email" placeholder="you@example.com"></form></body></html>`)
	require.NoError(t, err)
	input := htmlquery.FindOne(doc.Root(), "//input")

	rec := locator.Snapshot(doc, input, locator.SnapshotOptions{})

	assert.Equal(t, "input", rec.TagName)
	assert.Empty(t, rec.Text)
	assert.Equal(t, map[string]string{"type": "email", "name": "email", "placeholder": "you@example.com"}, rec.Attributes)
	assert.Equal(t, "/html/body/form/input", rec.XPath)
	assert.Equal(t, "body > form > input", rec.CSSSelector)
	assert.Equal(t, `<input type="email" name="email" placeholder="you@example.com"/>`, rec.OuterHTML)
	assert.Empty(t, rec.InnerHTML)
	assert.True(t, strings.HasPrefix(rec.FullPageHTML, "<html>"))
	assert.NotContains(t, rec.FullPageHTML, locator.TruncationMarker)
}

func TestSnapshotTextFallsBackToAggregate(t *testing.T) {
	doc, err := dom.ParseString(`<div id="card"> <span>Hello</span> <b>World</b> </div><p>  Direct <i>nested</i> </p>`)
	require.NoError(t, err)

	card := htmlquery.FindOne(doc.Root(), "//div")
	assert.Equal(t, "Hello World", locator.Snapshot(doc, card, locator.SnapshotOptions{}).Text)

	p := htmlquery.FindOne(doc.Root(), "//p")
	assert.Equal(t, "Direct", locator.Snapshot(doc, p, locator.SnapshotOptions{}).Text)
}

func TestVisibleTextCapsAggregate(t *testing.T) {
	long := strings.Repeat("é", 150)
	doc, err := dom.ParseString(`<div><span>` + long + `</span></div>`)
	require.NoError(t, err)
	div := htmlquery.FindOne(doc.Root(), "//div")

	text := locator.VisibleText(div)
	assert.Equal(t, 100, utf8.RuneCountInString(text))
	assert.True(t, utf8.ValidString(text))
}

func TestSnapshotTruncatesPageHTML(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><p>` + strings.Repeat("x", 400) + `</p></body></html>`)
	require.NoError(t, err)
	p := htmlquery.FindOne(doc.Root(), "//p")

	rec := locator.Snapshot(doc, p, locator.SnapshotOptions{MaxPageHTML: 64})
	require.True(t, strings.HasSuffix(rec.FullPageHTML, locator.TruncationMarker))
	assert.Equal(t, 64, utf8.RuneCountInString(strings.TrimSuffix(rec.FullPageHTML, locator.TruncationMarker)))

	// The element fields are never truncated.
	assert.Len(t, rec.Text, 400)
}

func TestSnapshotWithoutDocument(t *testing.T) {
	doc, err := dom.ParseString(`<a href="/x">x</a>`)
	require.NoError(t, err)
	a := htmlquery.FindOne(doc.Root(), "//a")

	rec := locator.Snapshot(nil, a, locator.SnapshotOptions{})
	assert.Empty(t, rec.FullPageHTML)
	assert.Equal(t, "/x", rec.Attr("href"))
}
