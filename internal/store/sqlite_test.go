package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmable/unify/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedStaging(t *testing.T, st *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO stg_abr_entities (abn, entity_name_norm, entity_name_raw, entity_type, entity_status, state, start_date_raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"51824753556", "ACME WIDGETS", "Acme Widgets Pty Ltd", "PRV", "ACT", "NSW", "20000101",
	)
	require.NoError(t, err)
	_, err = st.db.ExecContext(ctx,
		`INSERT INTO stg_abr_entities (abn, entity_name_norm, entity_status, state)
		 VALUES (?, ?, ?, ?)`,
		"99999999999", "GLOBEX", "CAN", "VIC",
	)
	require.NoError(t, err)

	_, err = st.db.ExecContext(ctx,
		`INSERT INTO stg_commoncrawl_companies (crawl_id, url, domain, company_name_norm, company_name_raw, industry)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"CC-MAIN-2026-04", "https://acme.example.com/about", "acme.example.com", "ACME WIDGETS", "Acme Widgets", "Manufacturing",
	)
	require.NoError(t, err)
}

func TestSQLite_FetchRegistryEntities(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedStaging(t, st)
	ctx := context.Background()

	entities, err := st.FetchRegistryEntities(ctx, RegistryFilter{})
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	active, err := st.FetchRegistryEntities(ctx, RegistryFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "51824753556", active[0].ABN)
	assert.Equal(t, "Acme Widgets Pty Ltd", active[0].NameRaw)
	assert.Equal(t, "20000101", active[0].StartDateRaw)
}

func TestSQLite_FetchWebMentions(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedStaging(t, st)

	mentions, err := st.FetchWebMentions(context.Background(), MentionFilter{})
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, int64(1), mentions[0].ID)
	assert.Equal(t, "ACME WIDGETS", mentions[0].NameNorm)
	assert.Equal(t, "Manufacturing", mentions[0].Industry)
}

func TestSQLite_WriteUnified_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	cand := acceptedCandidate()

	written, err := st.WriteUnified(ctx, []model.MatchCandidate{cand})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	counts, err := st.CountUnified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Companies)
	assert.Equal(t, int64(2), counts.SourceLinks)

	var name, method string
	var score float64
	err = st.db.QueryRowContext(ctx,
		`SELECT unified_name, match_method, match_confidence FROM company_unified WHERE abn = ?`,
		"51824753556",
	).Scan(&name, &method, &score)
	require.NoError(t, err)
	assert.Equal(t, "Acme Widgets Pty Ltd", name)
	assert.Equal(t, "fuzzy_name", method)
	assert.InDelta(t, 97.5, score, 0.001)

	var keys []string
	rows, err := st.db.QueryContext(ctx,
		`SELECT source_system || ':' || source_key FROM company_source_link ORDER BY source_system`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		keys = append(keys, k)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ABR:51824753556", "COMMONCRAWL:42"}, keys)
}

// Writing the same accepted set twice leaves identical counts. The write is
// truncate-and-reload, so re-runs do not accumulate rows.
func TestSQLite_WriteUnified_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	accepted := []model.MatchCandidate{acceptedCandidate()}

	for i := 0; i < 2; i++ {
		written, err := st.WriteUnified(ctx, accepted)
		require.NoError(t, err)
		assert.Equal(t, 1, written)
	}

	counts, err := st.CountUnified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Companies)
	assert.Equal(t, int64(2), counts.SourceLinks)

	// Sequence reset means the surviving row keeps company_id 1.
	var id int64
	err = st.db.QueryRowContext(ctx, `SELECT company_id FROM company_unified`).Scan(&id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestSQLite_WriteUnified_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	written, err := st.WriteUnified(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}
