package postgres

import (
	"context"
	"fmt"
	"strings"

	"crashpipe/internal/config"
	"crashpipe/internal/infrastructure/migration"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// Storage is the PostGIS-backed store. Repositories share one pool.
type Storage struct {
	pool *pgxpool.Pool
	*CrashRepository
	*JobRepository
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.DB.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	mg := migration.NewMigration(cfg, migration.DefaultEngine)
	if err := mg.Up(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Storage{
		pool:            pool,
		CrashRepository: NewCrashRepository(pool, log),
		JobRepository:   NewJobRepository(pool, log),
	}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Driver() string {
	return "postgres"
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

// upsertQuery builds an insert-or-update statement keyed by keyCols. Every
// non-key column is overwritten from the incoming row and updated_at is
// bumped. The RETURNING clause distinguishes a fresh insert (xmax = 0) from
// an update. When latCol and lonCol are set a PostGIS point is derived from
// them, left NULL unless both coordinates are present.
func upsertQuery(table string, cols, keyCols []string, latCol, lonCol string) string {
	key := make(map[string]bool, len(keyCols))
	for _, c := range keyCols {
		key[c] = true
	}

	insertCols := make([]string, len(cols))
	copy(insertCols, cols)
	placeholders := make([]string, 0, len(cols)+1)
	for i := range cols {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	if latCol != "" {
		latIdx, lonIdx := 0, 0
		for i, c := range cols {
			switch c {
			case latCol:
				latIdx = i + 1
			case lonCol:
				lonIdx = i + 1
			}
		}
		insertCols = append(insertCols, "geometry")
		placeholders = append(placeholders, fmt.Sprintf(
			"CASE WHEN $%d::float8 IS NOT NULL AND $%d::float8 IS NOT NULL"+
				" THEN ST_SetSRID(ST_MakePoint($%d::float8, $%d::float8), 4326) END",
			latIdx, lonIdx, lonIdx, latIdx))
	}

	var sets []string
	for _, c := range insertCols {
		if key[c] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	sets = append(sets, "updated_at = now()")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING (xmax = 0)",
		table,
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(keyCols, ", "),
		strings.Join(sets, ", "),
	)
}
