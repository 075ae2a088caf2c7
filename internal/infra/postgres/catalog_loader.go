package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"phishguard-engine/internal/domain"
)

// CatalogLoader reads the static content catalog (question pool and leveling
// table) from the content_catalog JSONB table. The catalog is loaded once at
// startup; the table is maintained by the content team, not by this service.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	var catalog domain.Catalog

	var rawQuestions []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM content_catalog WHERE id='questions'`).Scan(&rawQuestions)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, fmt.Errorf("load questions: %w", err)
	}
	if rawQuestions != nil {
		if err := json.Unmarshal(rawQuestions, &catalog.Questions); err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal questions: %w", err)
		}
	}

	var rawLevels []byte
	err = l.pool.QueryRow(ctx, `SELECT data FROM content_catalog WHERE id='levels'`).Scan(&rawLevels)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, fmt.Errorf("load levels: %w", err)
	}
	if rawLevels != nil {
		if err := json.Unmarshal(rawLevels, &catalog.Levels); err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal levels: %w", err)
		}
	}
	if len(catalog.Levels) == 0 {
		catalog.Levels = domain.DefaultLevelingTable()
	}
	if err := catalog.Levels.Validate(); err != nil {
		return domain.Catalog{}, fmt.Errorf("leveling table: %w", err)
	}
	return catalog, nil
}
