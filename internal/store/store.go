package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/locator-cli/internal/config"
	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// ErrNotFound is returned when no selection matches the lookup.
var ErrNotFound = errors.New("selection not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Source tells generated candidates apart from AI suggestions.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceAI        Source = "ai"
)

// Selection is one committed pick together with the candidates produced for it.
type Selection struct {
	ID           string                `json:"id"`
	PageURL      string                `json:"pageUrl,omitempty"`
	Record       locator.ElementRecord `json:"record"`
	Candidates   []locator.Candidate   `json:"candidates"`
	AICandidates []locator.Candidate   `json:"aiCandidates,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// Summary is the listing form of a Selection.
type Summary struct {
	ID             string    `json:"id"`
	PageURL        string    `json:"pageUrl,omitempty"`
	TagName        string    `json:"tagName"`
	XPath          string    `json:"xpath"`
	CandidateCount int       `json:"candidateCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store persists selection history in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects a pool for cfg.URL, ensures the schema and returns the store with a cleanup
// function that closes the pool.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Store, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (LOCATOR_STORE_URL)")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}

	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		s.log.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

const schemaSQL = `
        CREATE TABLE IF NOT EXISTS selections (
            id UUID PRIMARY KEY,
            page_url TEXT NOT NULL DEFAULT '',
            tag_name TEXT NOT NULL,
            xpath TEXT NOT NULL,
            css_selector TEXT NOT NULL,
            record JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );
        CREATE INDEX IF NOT EXISTS selections_created_at_idx ON selections (created_at DESC);
        CREATE TABLE IF NOT EXISTS selection_candidates (
            selection_id UUID NOT NULL REFERENCES selections (id) ON DELETE CASCADE,
            source TEXT NOT NULL,
            position INT NOT NULL,
            type TEXT NOT NULL,
            value TEXT NOT NULL,
            code JSONB NOT NULL,
            PRIMARY KEY (selection_id, source, position)
        );
    `

// EnsureSchema creates the history tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const sqlInsertSelection = `
        INSERT INTO selections (id, page_url, tag_name, xpath, css_selector, record, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `

var candidateColumns = []string{"selection_id", "source", "position", "type", "value", "code"}

// SaveSelection writes the selection and all of its candidates in one transaction. An empty ID
// is replaced with a fresh UUID and a zero CreatedAt with the current time; the stored values
// are returned.
func (s *Store) SaveSelection(ctx context.Context, sel Selection) (Selection, error) {
	if sel.ID == "" {
		sel.ID = uuid.NewString()
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now()
	}
	sel.CreatedAt = sel.CreatedAt.UTC()

	record, err := json.Marshal(sel.Record)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to encode element record: %w", err)
	}
	rows, err := candidateRows(sel)
	if err != nil {
		return Selection{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertSelection,
		sel.ID, sel.PageURL, sel.Record.TagName, sel.Record.XPath, sel.Record.CSSSelector, record, sel.CreatedAt,
	); err != nil {
		return Selection{}, fmt.Errorf("failed to insert selection: %w", err)
	}

	if len(rows) > 0 {
		copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"selection_candidates"}, candidateColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return Selection{}, fmt.Errorf("failed to copy candidates: %w", err)
		}
		if int(copyCount) != len(rows) {
			return Selection{}, fmt.Errorf("mismatch in copied candidates count: expected %d, got %d", len(rows), copyCount)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Selection{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Selection saved.",
		zap.String("selection_id", sel.ID),
		zap.Int("candidates", len(sel.Candidates)),
		zap.Int("ai_candidates", len(sel.AICandidates)))
	return sel, nil
}

func candidateRows(sel Selection) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(sel.Candidates)+len(sel.AICandidates))
	add := func(source Source, cands []locator.Candidate) error {
		for i, c := range cands {
			code, err := json.Marshal(c.Code)
			if err != nil {
				return fmt.Errorf("failed to encode candidate code: %w", err)
			}
			rows = append(rows, []interface{}{sel.ID, string(source), i, c.Type, c.Value, code})
		}
		return nil
	}
	if err := add(SourceGenerated, sel.Candidates); err != nil {
		return nil, err
	}
	if err := add(SourceAI, sel.AICandidates); err != nil {
		return nil, err
	}
	return rows, nil
}

const (
	sqlSelectLatest = `
        SELECT id, page_url, record, created_at
        FROM selections
        ORDER BY created_at DESC
        LIMIT 1;
    `
	sqlSelectByID = `
        SELECT id, page_url, record, created_at
        FROM selections
        WHERE id = $1;
    `
	sqlSelectCandidates = `
        SELECT source, type, value, code
        FROM selection_candidates
        WHERE selection_id = $1
        ORDER BY source, position ASC;
    `
	sqlListSelections = `
        SELECT s.id, s.page_url, s.tag_name, s.xpath, s.created_at, COUNT(c.selection_id)
        FROM selections s
        LEFT JOIN selection_candidates c ON c.selection_id = s.id
        GROUP BY s.id
        ORDER BY s.created_at DESC
        LIMIT $1;
    `
)

// Latest returns the most recently saved selection with its candidates.
func (s *Store) Latest(ctx context.Context) (Selection, error) {
	return s.load(ctx, s.pool.QueryRow(ctx, sqlSelectLatest))
}

// Get returns the selection with the given id.
func (s *Store) Get(ctx context.Context, id string) (Selection, error) {
	return s.load(ctx, s.pool.QueryRow(ctx, sqlSelectByID, id))
}

func (s *Store) load(ctx context.Context, row pgx.Row) (Selection, error) {
	var (
		sel    Selection
		record []byte
	)
	if err := row.Scan(&sel.ID, &sel.PageURL, &record, &sel.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Selection{}, ErrNotFound
		}
		return Selection{}, fmt.Errorf("failed to query selection: %w", err)
	}
	if err := json.Unmarshal(record, &sel.Record); err != nil {
		return Selection{}, fmt.Errorf("failed to decode element record: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlSelectCandidates, sel.ID)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source string
			c      locator.Candidate
			code   []byte
		)
		if err := rows.Scan(&source, &c.Type, &c.Value, &code); err != nil {
			return Selection{}, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		if err := json.Unmarshal(code, &c.Code); err != nil {
			return Selection{}, fmt.Errorf("failed to decode candidate code: %w", err)
		}
		if Source(source) == SourceAI {
			sel.AICandidates = append(sel.AICandidates, c)
		} else {
			sel.Candidates = append(sel.Candidates, c)
		}
	}
	if err := rows.Err(); err != nil {
		return Selection{}, fmt.Errorf("error during row iteration: %w", err)
	}
	return sel, nil
}

// List returns up to limit selections, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlListSelections, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.PageURL, &sum.TagName, &sum.XPath, &sum.CreatedAt, &sum.CandidateCount); err != nil {
			return nil, fmt.Errorf("failed to scan selection row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
