package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmable/unify/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func acceptedCandidate() model.MatchCandidate {
	return model.MatchCandidate{
		Mention: model.WebMention{
			ID:       42,
			URL:      "https://acme.example.com/about",
			Domain:   "acme.example.com",
			NameNorm: "ACME WIDGETS",
			Industry: "Manufacturing",
		},
		Entity: model.RegistryEntity{
			ABN:          "51824753556",
			NameNorm:     "ACME WIDGETS",
			NameRaw:      "Acme Widgets Pty Ltd",
			Type:         "PRV",
			Status:       "ACT",
			State:        "NSW",
			StartDateRaw: "20000101",
		},
		Score:  97.5,
		Method: model.MethodFuzzyName,
	}
}

func TestPostgresStore_FetchRegistryEntities(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"abn", "entity_name_norm", "entity_name_raw", "entity_type", "entity_status",
		"address_full", "suburb", "postcode", "state", "start_date_raw",
	}).AddRow("51824753556", "ACME WIDGETS", "Acme Widgets Pty Ltd", "PRV", "ACT",
		"1 Main St", "Sydney", "2000", "NSW", "20000101")

	mock.ExpectQuery(`FROM stg_abr_entities`).WillReturnRows(rows)

	entities, err := s.FetchRegistryEntities(context.Background(), RegistryFilter{})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "51824753556", entities[0].ABN)
	assert.Equal(t, "ACME WIDGETS", entities[0].NameNorm)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchRegistryEntities_Sampled(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"abn", "entity_name_norm", "entity_name_raw", "entity_type", "entity_status",
		"address_full", "suburb", "postcode", "state", "start_date_raw",
	})

	mock.ExpectQuery(`entity_status = 'ACT'`).
		WithArgs(int64(100)).
		WillReturnRows(rows)

	entities, err := s.FetchRegistryEntities(context.Background(), RegistryFilter{
		ActiveOnly:    true,
		SampleModulus: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchWebMentions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	fetched := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"commoncrawl_id", "crawl_id", "url", "domain",
		"company_name_norm", "company_name_raw", "industry", "fetched_at",
	}).AddRow(int64(42), "CC-MAIN-2026-04", "https://acme.example.com/about", "acme.example.com",
		"ACME WIDGETS", "Acme Widgets", "Manufacturing", fetched)

	mock.ExpectQuery(`FROM stg_commoncrawl_companies`).WillReturnRows(rows)

	mentions, err := s.FetchWebMentions(context.Background(), MentionFilter{})
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, int64(42), mentions[0].ID)
	assert.Equal(t, "acme.example.com", mentions[0].Domain)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteUnified(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cand := acceptedCandidate()

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE TABLE company_source_link, company_unified`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectQuery(`INSERT INTO company_unified`).
		WithArgs("51824753556", "Acme Widgets Pty Ltd", "ACME WIDGETS",
			"acme.example.com", "https://acme.example.com/about", "Manufacturing",
			"PRV", "ACT", "", "", "", "NSW",
			pgxmock.AnyArg(), 97.5, "fuzzy_name").
		WillReturnRows(pgxmock.NewRows([]string{"company_id"}).AddRow(int64(1)))
	mock.ExpectExec(`INSERT INTO company_source_link`).
		WithArgs(int64(1), "ABR", "51824753556").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO company_source_link`).
		WithArgs(int64(1), "COMMONCRAWL", "42").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	written, err := s.WriteUnified(context.Background(), []model.MatchCandidate{cand})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteUnified_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	written, err := s.WriteUnified(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteUnified_RollbackOnInsertFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cand := acceptedCandidate()

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE TABLE company_source_link, company_unified`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectQuery(`INSERT INTO company_unified`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	written, err := s.WriteUnified(context.Background(), []model.MatchCandidate{cand})
	require.Error(t, err)
	assert.Zero(t, written)
	assert.Contains(t, err.Error(), "insert unified company")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountUnified(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM company_unified`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM company_source_link`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(6)))

	counts, err := s.CountUnified(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Companies)
	assert.Equal(t, int64(6), counts.SourceLinks)
	assert.NoError(t, mock.ExpectationsWereMet())
}
