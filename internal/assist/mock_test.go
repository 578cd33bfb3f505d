package assist_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/locator-cli/internal/llmclient"
)

// MockClient is a mock implementation of llmclient.Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Stream(ctx context.Context, req llmclient.Request) (<-chan llmclient.Chunk, error) {
	args := m.Called(ctx, req)
	ch, _ := args.Get(0).(<-chan llmclient.Chunk)
	return ch, args.Error(1)
}

func (m *MockClient) Close() error {
	return m.Called().Error(0)
}

// streamOf builds a closed channel holding the given pieces followed by a Done chunk.
func streamOf(id string, finalErr error, pieces ...string) <-chan llmclient.Chunk {
	ch := make(chan llmclient.Chunk, len(pieces)+1)
	full := ""
	for _, p := range pieces {
		full += p
		ch <- llmclient.Chunk{RequestID: id, Text: p}
	}
	done := llmclient.Chunk{RequestID: id, Done: true, Err: finalErr}
	if finalErr == nil {
		done.Text = full
	}
	ch <- done
	close(ch)
	return ch
}
