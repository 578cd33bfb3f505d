// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/llmclient"
	"github.com/xkilldash9x/locator-cli/internal/store"
)

const loginPage = `<!DOCTYPE html>
<html><head><title>Login</title></head>
<body>
  <form id="login">
    <input type="email" name="email" placeholder="Email">
    <button id="submit" type="submit" class="btn primary">Sign in</button>
    <a href="/help" class="nav">Help</a>
    <a href="/faq" class="nav">FAQ</a>
  </form>
</body></html>`

// writeHTML stores content in a temporary file and returns its path.
func writeHTML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// executeCommand runs a fresh command tree with deps and returns what it printed.
func executeCommand(t *testing.T, deps dependencies, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	// Keep config discovery away from the developer's own files.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd(deps)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func testDeps(stores storeProvider, client llmclient.Client, stdin string) dependencies {
	return dependencies{
		stores: stores,
		llm: func(context.Context, config.AssistConfig, *zap.Logger) (llmclient.Client, error) {
			if client == nil {
				return nil, llmclient.ErrMissingAPIKey
			}
			return client, nil
		},
		stdin: strings.NewReader(stdin),
	}
}

// -- Fakes --

// fakeStore keeps selections in memory, newest last.
type fakeStore struct {
	mu         sync.Mutex
	selections []store.Selection
	err        error
}

func (f *fakeStore) SaveSelection(_ context.Context, sel store.Selection) (store.Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return store.Selection{}, f.err
	}
	if sel.ID == "" {
		sel.ID = "sel-" + string(rune('a'+len(f.selections)))
	}
	f.selections = append(f.selections, sel)
	return sel, nil
}

func (f *fakeStore) Latest(ctx context.Context) (store.Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.selections) == 0 {
		return store.Selection{}, store.ErrNotFound
	}
	return f.selections[len(f.selections)-1], nil
}

func (f *fakeStore) Get(_ context.Context, id string) (store.Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.selections {
		if s.ID == id {
			return s, nil
		}
	}
	return store.Selection{}, store.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, limit int) ([]store.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Summary
	for i := len(f.selections) - 1; i >= 0 && len(out) < limit; i-- {
		s := f.selections[i]
		out = append(out, store.Summary{
			ID:             s.ID,
			PageURL:        s.PageURL,
			TagName:        s.Record.TagName,
			XPath:          s.Record.XPath,
			CandidateCount: len(s.Candidates) + len(s.AICandidates),
			CreatedAt:      s.CreatedAt,
		})
	}
	return out, nil
}

// fakeStoreProvider hands out one shared fakeStore and records the config it was given.
type fakeStoreProvider struct {
	store   *fakeStore
	err     error
	created []config.StoreConfig
	closed  int
}

func (p *fakeStoreProvider) Create(_ context.Context, cfg config.StoreConfig, _ *zap.Logger) (historyStore, func(), error) {
	p.created = append(p.created, cfg)
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.closed++ }, nil
}

func newFakeStores() *fakeStoreProvider {
	return &fakeStoreProvider{store: &fakeStore{}}
}

// mockClient is a testify double for llmclient.Client.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockClient) Stream(ctx context.Context, req llmclient.Request) (<-chan llmclient.Chunk, error) {
	args := m.Called(ctx, req)
	ch, _ := args.Get(0).(<-chan llmclient.Chunk)
	return ch, args.Error(1)
}

func (m *mockClient) Close() error {
	return nil
}

// streamOf builds a closed channel carrying pieces and a final Done chunk.
func streamOf(id string, finalErr error, pieces ...string) <-chan llmclient.Chunk {
	ch := make(chan llmclient.Chunk, len(pieces)+1)
	for _, p := range pieces {
		ch <- llmclient.Chunk{RequestID: id, Text: p}
	}
	final := llmclient.Chunk{RequestID: id, Done: true, Err: finalErr}
	if finalErr == nil {
		final.Text = strings.Join(pieces, "")
	}
	ch <- final
	close(ch)
	return ch
}
