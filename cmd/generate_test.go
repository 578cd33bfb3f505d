// File: cmd/generate_test.go
package cmd

import (
	"errors"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/locator-cli/internal/locator"
)

func decodeReport(t *testing.T, out string) selectionReport {
	t.Helper()
	var report selectionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), "output should be valid JSON: %s", out)
	return report
}

func TestGenerate_TableOutput(t *testing.T) {
	page := writeHTML(t, loginPage)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "generate", "-f", page, "-t", "#submit")
	require.NoError(t, err)

	assert.Contains(t, out, `Element: <button> //*[@id="submit"]`)
	assert.Contains(t, out, "MATCHES")
	assert.Contains(t, out, "submit")
	assert.Contains(t, out, string(locator.StatusUnique))
	assert.NotContains(t, out, "selenium:", "snippets are opt-in")
}

func TestGenerate_JSONOutput(t *testing.T) {
	page := writeHTML(t, loginPage)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "generate", "-f", page, "-t", "//form/button", "-o", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, "button", report.Element.TagName)
	assert.Equal(t, "Sign in", report.Element.Text)
	require.NotEmpty(t, report.Candidates)

	first := report.Candidates[0]
	assert.Equal(t, locator.LabelID, first.Type)
	assert.Equal(t, "submit", first.Value)
	require.NotNil(t, first.Status)
	assert.Equal(t, locator.StatusUnique, *first.Status)
	assert.Equal(t, 1, *first.Count)
	assert.NotEmpty(t, first.Code.Playwright)
	assert.Empty(t, report.AICandidates)
	assert.Empty(t, report.SelectionID)
}

func TestGenerate_AmbiguousCandidatesAreReported(t *testing.T) {
	page := writeHTML(t, loginPage)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "generate", "-f", page, "-t", "//a[1]", "-o", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	var sawAmbiguous bool
	for _, c := range report.Candidates {
		if c.Type == locator.LabelClassName {
			require.NotNil(t, c.Status)
			assert.Equal(t, locator.StatusAmbiguous, *c.Status, "both links share the nav class")
			sawAmbiguous = true
		}
	}
	assert.True(t, sawAmbiguous)
}

func TestGenerate_NoVerifyAndCode(t *testing.T) {
	page := writeHTML(t, loginPage)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "generate", "-f", page, "-t", "#submit", "--no-verify", "--code")
	require.NoError(t, err)

	assert.NotContains(t, out, "MATCHES")
	assert.Contains(t, out, "selenium:")
	assert.Contains(t, out, "playwright:")
	assert.Contains(t, out, "cypress:")
}

func TestGenerate_ReadsStdin(t *testing.T) {
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, loginPage), "generate", "-f", "-", "-t", "input[name=email]")
	require.NoError(t, err)
	assert.Contains(t, out, "email")
}

func TestGenerate_Failures(t *testing.T) {
	page := writeHTML(t, loginPage)
	deps := testDeps(newFakeStores(), nil, "")

	t.Run("no match", func(t *testing.T) {
		_, _, err := executeCommand(t, deps, "generate", "-f", page, "-t", "#missing")
		assert.ErrorIs(t, err, locator.ErrNoMatch)
	})
	t.Run("ambiguous target", func(t *testing.T) {
		_, _, err := executeCommand(t, deps, "generate", "-f", page, "-t", "a.nav")
		assert.ErrorIs(t, err, locator.ErrAmbiguous)
	})
	t.Run("missing source", func(t *testing.T) {
		_, _, err := executeCommand(t, deps, "generate", "-t", "#submit")
		assert.Error(t, err)
	})
	t.Run("both sources", func(t *testing.T) {
		_, _, err := executeCommand(t, deps, "generate", "-f", page, "-u", "example.com", "-t", "#submit")
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, _, err := executeCommand(t, deps, "generate", "-f", page+".nope", "-t", "#submit")
		assert.ErrorContains(t, err, "failed to open HTML file")
	})
	t.Run("bad format", func(t *testing.T) {
		_, _, err := executeCommand(t, deps, "generate", "-f", page, "-t", "#submit", "-o", "yaml")
		assert.ErrorContains(t, err, "unsupported output format")
	})
}

func TestGenerate_WithAI(t *testing.T) {
	page := writeHTML(t, loginPage)
	client := new(mockClient)
	client.On("Generate", mock.Anything, mock.Anything).
		Return("1. CSS Selector: form#login > button\n2. XPath: //button[@type='submit']\n3. Name: nothing-here", nil).Once()

	out, _, err := executeCommand(t, testDeps(newFakeStores(), client, ""), "generate", "-f", page, "-t", "#submit", "--ai", "-o", "json")
	require.NoError(t, err)
	client.AssertExpectations(t)

	report := decodeReport(t, out)
	require.Len(t, report.AICandidates, 3)
	statuses := make([]locator.Status, 0, 3)
	for _, c := range report.AICandidates {
		require.NotNil(t, c.Status)
		statuses = append(statuses, *c.Status)
	}
	assert.Equal(t, []locator.Status{locator.StatusUnique, locator.StatusUnique, locator.StatusNotFound}, statuses)
	assert.Equal(t, "CSS Selector (AI)", report.AICandidates[0].Type)
}

func TestGenerate_AIFailureKeepsGeneratedCandidates(t *testing.T) {
	page := writeHTML(t, loginPage)
	client := new(mockClient)
	client.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	out, _, err := executeCommand(t, testDeps(newFakeStores(), client, ""), "generate", "-f", page, "-t", "#submit", "--ai")
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Contains(t, out, "submit", "generated candidates are printed before the AI error")
	assert.NotContains(t, out, "AI suggestions:")
}

func TestGenerate_AIClientUnavailable(t *testing.T) {
	page := writeHTML(t, loginPage)
	_, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "generate", "-f", page, "-t", "#submit", "--ai")
	assert.ErrorContains(t, err, "failed to initialize AI client")
}

func TestGenerate_Save(t *testing.T) {
	page := writeHTML(t, loginPage)
	stores := newFakeStores()
	client := new(mockClient)
	client.On("Generate", mock.Anything, mock.Anything).Return("ID: submit", nil).Once()

	out, _, err := executeCommand(t, testDeps(stores, client, ""), "generate", "-f", page, "-t", "#submit", "--ai", "--save", "-o", "json")
	require.NoError(t, err)

	require.Len(t, stores.store.selections, 1)
	saved := stores.store.selections[0]
	assert.Equal(t, "button", saved.Record.TagName)
	assert.NotEmpty(t, saved.Record.FullPageHTML)
	assert.NotEmpty(t, saved.Candidates)
	require.Len(t, saved.AICandidates, 1)
	assert.Equal(t, "ID (AI)", saved.AICandidates[0].Type)
	assert.Equal(t, saved.ID, decodeReport(t, out).SelectionID)
	assert.Equal(t, 1, stores.closed)
}

func TestGenerate_SaveFailure(t *testing.T) {
	page := writeHTML(t, loginPage)
	stores := newFakeStores()
	stores.store.err = errors.New("disk full")

	_, _, err := executeCommand(t, testDeps(stores, nil, ""), "generate", "-f", page, "-t", "#submit", "--save")
	assert.ErrorContains(t, err, "failed to save selection")
}
