// File: cmd/deps.go
package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/llmclient"
	"github.com/xkilldash9x/locator-cli/internal/store"
)

// historyStore is the persistence surface the commands use.
type historyStore interface {
	SaveSelection(ctx context.Context, sel store.Selection) (store.Selection, error)
	Latest(ctx context.Context) (store.Selection, error)
	Get(ctx context.Context, id string) (store.Selection, error)
	List(ctx context.Context, limit int) ([]store.Summary, error)
}

// storeProvider opens the history store. The returned func releases it.
type storeProvider interface {
	Create(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (historyStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns a provider backed by PostgreSQL.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (historyStore, func(), error) {
	s, closeFn, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, closeFn, nil
}

// llmFactory builds the model client used by the assist flows.
type llmFactory func(ctx context.Context, cfg config.AssistConfig, logger *zap.Logger) (llmclient.Client, error)

func defaultLLMFactory(ctx context.Context, cfg config.AssistConfig, logger *zap.Logger) (llmclient.Client, error) {
	return llmclient.NewClient(ctx, cfg, logger)
}
