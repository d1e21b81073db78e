package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/firmable/unify/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the local
// single-file backend for demo runs without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	commoncrawl_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	crawl_id          TEXT NOT NULL DEFAULT '',
	url               TEXT NOT NULL DEFAULT '',
	domain            TEXT NOT NULL DEFAULT '',
	tld               TEXT NOT NULL DEFAULT '',
	html_title        TEXT NOT NULL DEFAULT '',
	company_name_raw  TEXT NOT NULL DEFAULT '',
	company_name_norm TEXT NOT NULL DEFAULT '',
	industry          TEXT NOT NULL DEFAULT '',
	fetched_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_unified (
	company_id         INTEGER PRIMARY KEY AUTOINCREMENT,
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
	match_confidence   REAL NOT NULL DEFAULT 0,
	match_method       TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_source_link (
	link_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id    INTEGER NOT NULL REFERENCES company_unified(company_id) ON DELETE CASCADE,
	source_system TEXT NOT NULL,
	source_key    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stg_abr_status ON stg_abr_entities(entity_status);
CREATE INDEX IF NOT EXISTS idx_unified_abn ON company_unified(abn);
CREATE INDEX IF NOT EXISTS idx_source_link_company ON company_source_link(company_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FetchRegistryEntities(ctx context.Context, f RegistryFilter) ([]model.RegistryEntity, error) {
	query := `SELECT abn, entity_name_norm, entity_name_raw, entity_type, entity_status,
	                 address_full, suburb, postcode, state, start_date_raw
	          FROM stg_abr_entities
	          WHERE abn <> '' AND state <> ''`
	args := []any{}

	if f.ActiveOnly {
		query += ` AND entity_status = 'ACT'`
	}
	if f.SampleModulus > 1 {
		query += ` AND (CAST(abn AS INTEGER) % ?) = 0`
		args = append(args, f.SampleModulus)
	}
	query += ` ORDER BY abn`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch registry entities")
	}
	defer rows.Close()

	var entities []model.RegistryEntity
	for rows.Next() {
		var e model.RegistryEntity
		if err := rows.Scan(&e.ABN, &e.NameNorm, &e.NameRaw, &e.Type, &e.Status,
			&e.Address, &e.Suburb, &e.Postcode, &e.State, &e.StartDateRaw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan registry entity")
		}
		entities = append(entities, e)
	}
	return entities, eris.Wrap(rows.Err(), "sqlite: fetch registry entities iterate")
}

func (s *SQLiteStore) FetchWebMentions(ctx context.Context, f MentionFilter) ([]model.WebMention, error) {
	query := `SELECT commoncrawl_id, crawl_id, url, domain, company_name_norm,
	                 company_name_raw, industry, fetched_at
	          FROM stg_commoncrawl_companies`
	args := []any{}

	if f.SampleModulus > 1 {
		query += ` WHERE (commoncrawl_id % ?) = 0`
		args = append(args, f.SampleModulus)
	}
	query += ` ORDER BY commoncrawl_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch web mentions")
	}
	defer rows.Close()

	var mentions []model.WebMention
	for rows.Next() {
		var m model.WebMention
		if err := rows.Scan(&m.ID, &m.CrawlID, &m.URL, &m.Domain, &m.NameNorm,
			&m.NameRaw, &m.Industry, &m.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan web mention")
		}
		mentions = append(mentions, m)
	}
	return mentions, eris.Wrap(rows.Err(), "sqlite: fetch web mentions iterate")
}

const sqliteInsertUnifiedSQL = `
INSERT INTO company_unified (
	abn, unified_name, unified_name_norm,
	website_domain, website_url_sample, industry,
	entity_type, entity_status, address_full, suburb, postcode, state,
	start_date, match_confidence, match_method
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sqliteInsertLinkSQL = `
INSERT INTO company_source_link (company_id, source_system, source_key)
VALUES (?, ?, ?)`

// WriteUnified mirrors the Postgres transaction: delete the unified table
// set, reset the id sequences, insert one unified row plus two source links
// per accepted candidate, then commit.
func (s *SQLiteStore) WriteUnified(ctx context.Context, accepted []model.MatchCandidate) (int, error) {
	if len(accepted) == 0 {
		zap.L().Warn("no accepted candidates to write")
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin unified write")
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM company_source_link`,
		`DELETE FROM company_unified`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, eris.Wrap(err, "sqlite: clear unified tables")
		}
	}
	// sqlite_sequence only exists after the first AUTOINCREMENT insert.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sqlite_sequence WHERE name IN ('company_unified', 'company_source_link')`,
	); err != nil && !strings.Contains(err.Error(), "no such table") {
		return 0, eris.Wrap(err, "sqlite: reset unified sequences")
	}

	written := 0
	for _, cand := range accepted {
		cc := cand.Mention
		abr := cand.Entity

		res, err := tx.ExecContext(ctx, sqliteInsertUnifiedSQL,
			abr.ABN, unifiedName(abr), abr.NameNorm,
			cc.Domain, cc.URL, cc.Industry,
			abr.Type, abr.Status, abr.Address, abr.Suburb, abr.Postcode, abr.State,
			ParseStartDate(abr.StartDateRaw), cand.Score, string(cand.Method),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert unified company abn=%s", abr.ABN)
		}
		companyID, err := res.LastInsertId()
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: unified company id abn=%s", abr.ABN)
		}

		if _, err := tx.ExecContext(ctx, sqliteInsertLinkSQL, companyID, model.SourceABR, abr.ABN); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert registry link abn=%s", abr.ABN)
		}
		if _, err := tx.ExecContext(ctx, sqliteInsertLinkSQL, companyID, model.SourceCommonCrawl, formatMentionKey(cc.ID)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert crawl link abn=%s", abr.ABN)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit unified write")
	}

	zap.L().Info("unified write complete",
		zap.Int("companies", written),
		zap.Int("source_links", written*2),
	)
	return written, nil
}

func (s *SQLiteStore) CountUnified(ctx context.Context) (UnifiedCounts, error) {
	var counts UnifiedCounts
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM company_unified`,
	).Scan(&counts.Companies); err != nil {
		return counts, eris.Wrap(err, "sqlite: count unified companies")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM company_source_link`,
	).Scan(&counts.SourceLinks); err != nil {
		return counts, eris.Wrap(err, "sqlite: count source links")
	}
	return counts, nil
}
