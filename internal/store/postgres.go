package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/firmable/unify/internal/model"
)

// Pool is the minimal pgxpool surface the store uses; pgxmock satisfies it
// for unit tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS stg_abr_entities (
	abn              TEXT PRIMARY KEY,
	entity_name_norm TEXT NOT NULL DEFAULT '',
	entity_name_raw  TEXT NOT NULL DEFAULT '',
	entity_type      TEXT NOT NULL DEFAULT '',
	entity_status    TEXT NOT NULL DEFAULT '',
	address_full     TEXT NOT NULL DEFAULT '',
	suburb           TEXT NOT NULL DEFAULT '',
	postcode         TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	start_date_raw   TEXT NOT NULL DEFAULT '',
	load_batch_id    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stg_commoncrawl_companies (
	commoncrawl_id    BIGSERIAL PRIMARY KEY,
	crawl_id          TEXT NOT NULL DEFAULT '',
	url               TEXT NOT NULL DEFAULT '',
	domain            TEXT NOT NULL DEFAULT '',
	tld               TEXT NOT NULL DEFAULT '',
	html_title        TEXT NOT NULL DEFAULT '',
	company_name_raw  TEXT NOT NULL DEFAULT '',
	company_name_norm TEXT NOT NULL DEFAULT '',
	industry          TEXT NOT NULL DEFAULT '',
	fetched_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_unified (
	company_id         BIGSERIAL PRIMARY KEY,
	abn                TEXT NOT NULL,
	unified_name       TEXT NOT NULL DEFAULT '',
	unified_name_norm  TEXT NOT NULL DEFAULT '',
	website_domain     TEXT NOT NULL DEFAULT '',
	website_url_sample TEXT NOT NULL DEFAULT '',
	industry           TEXT NOT NULL DEFAULT '',
	entity_type        TEXT NOT NULL DEFAULT '',
	entity_status      TEXT NOT NULL DEFAULT '',
	address_full       TEXT NOT NULL DEFAULT '',
	suburb             TEXT NOT NULL DEFAULT '',
	postcode           TEXT NOT NULL DEFAULT '',
	state              TEXT NOT NULL DEFAULT '',
	start_date         DATE,
	match_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	match_method       TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_source_link (
	link_id       BIGSERIAL PRIMARY KEY,
	company_id    BIGINT NOT NULL REFERENCES company_unified(company_id) ON DELETE CASCADE,
	source_system TEXT NOT NULL,
	source_key    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stg_abr_status ON stg_abr_entities(entity_status);
CREATE INDEX IF NOT EXISTS idx_unified_abn ON company_unified(abn);
CREATE INDEX IF NOT EXISTS idx_source_link_company ON company_source_link(company_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) FetchRegistryEntities(ctx context.Context, f RegistryFilter) ([]model.RegistryEntity, error) {
	query := `SELECT abn, entity_name_norm, entity_name_raw, entity_type, entity_status,
	                 address_full, suburb, postcode, state, start_date_raw
	          FROM stg_abr_entities
	          WHERE abn <> '' AND state <> ''`
	args := []any{}

	if f.ActiveOnly {
		query += ` AND entity_status = 'ACT'`
	}
	if f.SampleModulus > 1 {
		query += ` AND (abn::BIGINT % $1) = 0`
		args = append(args, f.SampleModulus)
	}
	query += ` ORDER BY abn`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch registry entities")
	}
	defer rows.Close()

	var entities []model.RegistryEntity
	for rows.Next() {
		var e model.RegistryEntity
		if err := rows.Scan(&e.ABN, &e.NameNorm, &e.NameRaw, &e.Type, &e.Status,
			&e.Address, &e.Suburb, &e.Postcode, &e.State, &e.StartDateRaw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan registry entity")
		}
		entities = append(entities, e)
	}
	return entities, eris.Wrap(rows.Err(), "postgres: fetch registry entities iterate")
}

func (s *PostgresStore) FetchWebMentions(ctx context.Context, f MentionFilter) ([]model.WebMention, error) {
	query := `SELECT commoncrawl_id, crawl_id, url, domain, company_name_norm,
	                 company_name_raw, industry, fetched_at
	          FROM stg_commoncrawl_companies`
	args := []any{}

	if f.SampleModulus > 1 {
		query += ` WHERE (commoncrawl_id % $1) = 0`
		args = append(args, f.SampleModulus)
	}
	query += ` ORDER BY commoncrawl_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch web mentions")
	}
	defer rows.Close()

	var mentions []model.WebMention
	for rows.Next() {
		var m model.WebMention
		if err := rows.Scan(&m.ID, &m.CrawlID, &m.URL, &m.Domain, &m.NameNorm,
			&m.NameRaw, &m.Industry, &m.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan web mention")
		}
		mentions = append(mentions, m)
	}
	return mentions, eris.Wrap(rows.Err(), "postgres: fetch web mentions iterate")
}

const insertUnifiedSQL = `
INSERT INTO company_unified (
	abn, unified_name, unified_name_norm,
	website_domain, website_url_sample, industry,
	entity_type, entity_status, address_full, suburb, postcode, state,
	start_date, match_confidence, match_method
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING company_id`

const insertLinkSQL = `
INSERT INTO company_source_link (company_id, source_system, source_key)
VALUES ($1, $2, $3)`

// WriteUnified replaces the unified table set with one row (plus two source
// links) per accepted candidate, inside a single transaction. The truncate
// makes re-runs idempotent; any insert failure rolls the whole write back,
// leaving the unified set empty rather than partial.
func (s *PostgresStore) WriteUnified(ctx context.Context, accepted []model.MatchCandidate) (int, error) {
	if len(accepted) == 0 {
		zap.L().Warn("no accepted candidates to write")
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin unified write")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`TRUNCATE TABLE company_source_link, company_unified RESTART IDENTITY CASCADE`,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: truncate unified tables")
	}

	written := 0
	for _, cand := range accepted {
		cc := cand.Mention
		abr := cand.Entity

		var companyID int64
		err := tx.QueryRow(ctx, insertUnifiedSQL,
			abr.ABN, unifiedName(abr), abr.NameNorm,
			cc.Domain, cc.URL, cc.Industry,
			abr.Type, abr.Status, abr.Address, abr.Suburb, abr.Postcode, abr.State,
			ParseStartDate(abr.StartDateRaw), cand.Score, string(cand.Method),
		).Scan(&companyID)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert unified company abn=%s", abr.ABN)
		}

		if _, err := tx.Exec(ctx, insertLinkSQL, companyID, model.SourceABR, abr.ABN); err != nil {
			return 0, eris.Wrapf(err, "postgres: insert registry link abn=%s", abr.ABN)
		}
		if _, err := tx.Exec(ctx, insertLinkSQL, companyID, model.SourceCommonCrawl, formatMentionKey(cc.ID)); err != nil {
			return 0, eris.Wrapf(err, "postgres: insert crawl link abn=%s", abr.ABN)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit unified write")
	}

	zap.L().Info("unified write complete",
		zap.Int("companies", written),
		zap.Int("source_links", written*2),
	)
	return written, nil
}

func (s *PostgresStore) CountUnified(ctx context.Context) (UnifiedCounts, error) {
	var counts UnifiedCounts
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM company_unified`,
	).Scan(&counts.Companies); err != nil {
		return counts, eris.Wrap(err, "postgres: count unified companies")
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM company_source_link`,
	).Scan(&counts.SourceLinks); err != nil {
		return counts, eris.Wrap(err, "postgres: count source links")
	}
	return counts, nil
}
