package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmable/unify/internal/model"
	"github.com/firmable/unify/internal/store"
)

type stubStore struct {
	pingErr error
	counts  store.UnifiedCounts
}

func (s *stubStore) FetchRegistryEntities(context.Context, store.RegistryFilter) ([]model.RegistryEntity, error) {
	return nil, nil
}
func (s *stubStore) FetchWebMentions(context.Context, store.MentionFilter) ([]model.WebMention, error) {
	return nil, nil
}
func (s *stubStore) WriteUnified(context.Context, []model.MatchCandidate) (int, error) {
	return 0, nil
}
func (s *stubStore) CountUnified(context.Context) (store.UnifiedCounts, error) {
	return s.counts, nil
}
func (s *stubStore) Migrate(context.Context) error { return nil }
func (s *stubStore) Ping(context.Context) error    { return s.pingErr }
func (s *stubStore) Close() error                  { return nil }

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := NewServer(&stubStore{})
	rec := doGet(t, srv.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHealthz_StoreDown(t *testing.T) {
	srv := NewServer(&stubStore{pingErr: errors.New("connection refused")})
	rec := doGet(t, srv.Router(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummary_BeforeAnyRun(t *testing.T) {
	srv := NewServer(&stubStore{})
	rec := doGet(t, srv.Router(), "/v1/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary_AfterRun(t *testing.T) {
	srv := NewServer(&stubStore{})
	srv.SetSummary(&model.RunSummary{WebMentions: 7, TotalWritten: 3})

	rec := doGet(t, srv.Router(), "/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 7, sum.WebMentions)
	assert.Equal(t, 3, sum.TotalWritten)
}

func TestUnifiedCount(t *testing.T) {
	srv := NewServer(&stubStore{counts: store.UnifiedCounts{Companies: 4, SourceLinks: 8}})

	rec := doGet(t, srv.Router(), "/v1/unified/count")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts store.UnifiedCounts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(4), counts.Companies)
	assert.Equal(t, int64(8), counts.SourceLinks)
}
