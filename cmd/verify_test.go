// File: cmd/verify_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/locator-cli/internal/locator"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"//button", locator.LabelXPath},
		{"  /html/body", locator.LabelXPath},
		{"(//a)[2]", locator.LabelXPath},
		{"#submit", locator.LabelCSS},
		{"a.nav", locator.LabelCSS},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.value))
		})
	}
}

func TestVerify_ManyDocumentsKeepInputOrder(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 0, 5)
	pages := []string{
		`<html><body><a class="nav">1</a></body></html>`,
		`<html><body><a class="nav">1</a><a class="nav">2</a></body></html>`,
		`<html><body><p>none</p></body></html>`,
		`<html><body><a class="nav">1</a><a class="nav">2</a><a class="nav">3</a></body></html>`,
		`<html><body><div><a class="nav">x</a></div></body></html>`,
	}
	for i, p := range pages {
		path := filepath.Join(dir, "page"+string(rune('0'+i))+".html")
		require.NoError(t, os.WriteFile(path, []byte(p), 0o600))
		paths = append(paths, path)
	}

	args := append([]string{"verify", "--type", "Class Name", "--value", "nav", "-o", "json", "--concurrency", "2"}, paths...)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), args...)
	require.NoError(t, err)

	var rows []verifyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, len(paths))

	wantCounts := []int{1, 2, 0, 3, 1}
	for i, row := range rows {
		assert.Equal(t, paths[i], row.Source)
		assert.Equal(t, wantCounts[i], row.Count, "source %d", i)
		require.NotNil(t, row.Status)
	}
	assert.Equal(t, locator.StatusAmbiguous, *rows[1].Status)
	assert.Equal(t, locator.StatusNotFound, *rows[2].Status)
}

func TestVerify_TableAndInferredType(t *testing.T) {
	page := writeHTML(t, loginPage)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "verify", "--value", "//a", page)
	require.NoError(t, err)

	assert.Contains(t, out, "XPath: //a")
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, string(locator.StatusAmbiguous))
}

func TestVerify_SyntaxErrorIsZeroMatches(t *testing.T) {
	page := writeHTML(t, loginPage)
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "verify", "--value", "//*[", "-o", "json", page)
	require.NoError(t, err, "a malformed locator is a result, not a failure")

	var rows []verifyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Count)
	assert.Equal(t, locator.StatusNotFound, *rows[0].Status)
}

func TestVerify_StdinSource(t *testing.T) {
	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, loginPage), "verify", "-T", "ID", "-V", "submit", "-o", "json", "-")
	require.NoError(t, err)

	var rows []verifyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, 1, rows[0].Count)
}

func TestVerify_UnreadableDocument(t *testing.T) {
	page := writeHTML(t, loginPage)
	missing := filepath.Join(t.TempDir(), "missing.html")

	out, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "verify", "--value", "#submit", page, missing)
	assert.ErrorContains(t, err, "1 of 2 documents could not be loaded")
	assert.Contains(t, out, "error", "the failed source is still listed")
	assert.Contains(t, out, string(locator.StatusUnique))
}

func TestVerify_RequiresValueAndSource(t *testing.T) {
	page := writeHTML(t, loginPage)
	_, _, err := executeCommand(t, testDeps(newFakeStores(), nil, ""), "verify", page)
	assert.ErrorContains(t, err, `"value" not set`)

	_, _, err = executeCommand(t, testDeps(newFakeStores(), nil, ""), "verify", "--value", "#x")
	assert.Error(t, err)
}
