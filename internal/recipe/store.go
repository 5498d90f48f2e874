package recipe

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store defines the read-only recipe data operations used by search.
type Store interface {
	Candidates(ctx context.Context, f Filter) ([]Candidate, error)
	LoadRecipes(ctx context.Context, urls []string) (map[string]*Recipe, error)
	Sources(ctx context.Context) ([]string, error)
	CanonicalTerms(ctx context.Context) ([]string, error)
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore implements Store on top of a relational recipe database. The same
// queries run on PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Compile-time interface guard.
var _ Store = (*SQLStore)(nil)

// Open connects to the recipe database.
func Open(ctx context.Context, driver, dataSourceName string, logger *zap.Logger) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared between queries.
		db.SetMaxOpenConns(1)
	}

	return NewSQLStore(db, logger), nil
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, logger: logger.Named("recipe_store")}
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Schema is the layout of the recipe database as written by the ingestion
// pipeline. It is portable between PostgreSQL and SQLite.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS recipe_schema (
		url TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		cook_time TEXT,
		yields TEXT,
		why_this_works TEXT,
		headnote TEXT,
		equipment TEXT,
		source_domain TEXT,
		processed_at TEXT,
		course TEXT,
		main_ingredient TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_ingredients (
		url TEXT NOT NULL REFERENCES recipe_schema(url),
		ingredient TEXT NOT NULL,
		normalized_ingredient TEXT,
		canonical_ingredient TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_url ON recipe_ingredients(url)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_norm ON recipe_ingredients(normalized_ingredient)`,
	`CREATE TABLE IF NOT EXISTS recipe_instructions (
		url TEXT NOT NULL REFERENCES recipe_schema(url),
		step_number TEXT,
		instruction TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_instructions_url ON recipe_instructions(url)`,
	`CREATE TABLE IF NOT EXISTS recipe_tags (
		url TEXT NOT NULL REFERENCES recipe_schema(url),
		category TEXT NOT NULL,
		title TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_tags_url ON recipe_tags(url, category)`,
	`CREATE TABLE IF NOT EXISTS simplified_recipes (
		url TEXT PRIMARY KEY REFERENCES recipe_schema(url),
		simplified_data TEXT
	)`,
}

// EnsureSchema creates the recipe tables if they do not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Candidates returns (url, matched count) pairs for recipes satisfying f,
// largest matched count first, at most f.Limit rows when f.Limit > 0.
func (s *SQLStore) Candidates(ctx context.Context, f Filter) ([]Candidate, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	query, args := candidateQuery(f)
	query = s.db.Rebind(query)
	s.logger.Debug("candidate query", zap.String("sql", query), zap.Any("args", args))

	candidates := []Candidate{}
	if err := s.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	return candidates, nil
}
