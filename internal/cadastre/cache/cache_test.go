package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"catastro/internal/cadastre/cache"
	"catastro/internal/cadastre/cache/store"
	"catastro/internal/cadastre/metrics"
	"catastro/internal/cadastre/models"
	"catastro/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type ResultCacheSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	cache   *cache.ResultCache
	metrics *metrics.Metrics
	fetches int
}

func TestResultCacheSuite(t *testing.T) {
	suite.Run(t, new(ResultCacheSuite))
}

func (s *ResultCacheSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), fixedNow)
	s.store = store.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.cache = cache.NewResultCache(s.store, cache.DefaultTTL, cache.DefaultErrorTTL, cache.WithMetrics(s.metrics))
	s.fetches = 0
}

func (s *ResultCacheSuite) fetcher(result models.CadastralResult) func(context.Context) models.CadastralResult {
	return func(context.Context) models.CadastralResult {
		s.fetches++
		return result
	}
}

func (s *ResultCacheSuite) TestHitSkipsFetch() {
	key := cache.CoordinateKey(models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038})
	want := models.Success(models.SourceREST, "9872023VH5797S0001WX")
	want.UTMCoordinates = "UTM 30N E: 440291.000 N: 4474254.000"
	want.ClimateZone = "D3"

	first, hit := s.cache.GetOrFetch(s.ctx, key, s.fetcher(want))
	s.False(hit)
	second, hit := s.cache.GetOrFetch(s.ctx, key, s.fetcher(want))
	s.True(hit)

	s.Equal(1, s.fetches)
	s.Equal(first, second)

	a, err := json.Marshal(first)
	s.Require().NoError(err)
	b, err := json.Marshal(second)
	s.Require().NoError(err)
	s.Equal(string(a), string(b))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
}

func (s *ResultCacheSuite) TestExpiredEntryIsDroppedNotReturned() {
	key := cache.AddressKey("Calle Mayor 15, 28001 Madrid")
	s.cache.GetOrFetch(s.ctx, key, s.fetcher(models.Success(models.SourceREST, "OLD")))

	later := requestcontext.WithTime(context.Background(), fixedNow.Add(cache.DefaultTTL+time.Second))
	got, hit := s.cache.GetOrFetch(later, key, s.fetcher(models.Success(models.SourceSOAP, "NEW")))

	s.False(hit)
	s.Equal("NEW", got.CadastralReference)
	s.Equal(2, s.fetches)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("expired")))
}

func (s *ResultCacheSuite) TestEntryLiveUntilExactExpiry() {
	key := cache.AddressKey("x")
	s.cache.Put(s.ctx, key, models.Success(models.SourceREST, "REF"))

	atExpiry := requestcontext.WithTime(context.Background(), fixedNow.Add(cache.DefaultTTL))
	_, ok := s.cache.Lookup(atExpiry, key)
	s.True(ok, "now == expiresAt is still live")
}

func (s *ResultCacheSuite) TestFailuresUseErrorTTL() {
	key := cache.CoordinateKey(models.GeoCoordinates{Lat: 41, Lng: -4})
	failed := models.Failure(models.SourceRESTSOAPFailed, models.ErrorKindTerminal, "registry unavailable")
	s.cache.GetOrFetch(s.ctx, key, s.fetcher(failed))

	withinErrorTTL := requestcontext.WithTime(context.Background(), fixedNow.Add(cache.DefaultErrorTTL-time.Second))
	_, hit := s.cache.GetOrFetch(withinErrorTTL, key, s.fetcher(failed))
	s.True(hit)

	afterErrorTTL := requestcontext.WithTime(context.Background(), fixedNow.Add(cache.DefaultErrorTTL+time.Second))
	_, hit = s.cache.GetOrFetch(afterErrorTTL, key, s.fetcher(failed))
	s.False(hit)
	s.Equal(2, s.fetches)
}

func (s *ResultCacheSuite) TestValidationRejectionsAreNotCached() {
	key := cache.CoordinateKey(models.GeoCoordinates{Lat: 50, Lng: 2})
	rejected := models.Failure(models.SourceFallback, models.ErrorKindValidation, "out of territory")
	s.cache.GetOrFetch(s.ctx, key, s.fetcher(rejected))
	s.cache.GetOrFetch(s.ctx, key, s.fetcher(rejected))

	s.Equal(2, s.fetches)
	s.Zero(s.store.Len())
}

func (s *ResultCacheSuite) TestCorruptEntryIsDropped() {
	key := cache.AddressKey("corrupt")
	s.Require().NoError(s.store.Set(s.ctx, key, []byte("{not json"), 0))

	_, ok := s.cache.Lookup(s.ctx, key)
	s.False(ok)
	s.Zero(s.store.Len())
}

func (s *ResultCacheSuite) TestPersistedEntryShape() {
	key := cache.AddressKey("shape")
	s.cache.Put(s.ctx, key, models.Success(models.SourceSOAP, "REF"))

	raw, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	var entry map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(raw, &entry))
	s.Contains(entry, "data")
	s.JSONEq(`1772445600000`, string(entry["expiresAt"]), "fixedNow + 24h in epoch millis")
}

func (s *ResultCacheSuite) TestQuotaClearsNamespaceAndRetriesOnce() {
	limited := store.NewInMemoryStore(store.WithMaxEntries(1))
	c := cache.NewResultCache(limited, cache.DefaultTTL, cache.DefaultErrorTTL, cache.WithMetrics(s.metrics))

	first := cache.AddressKey("first")
	second := cache.AddressKey("second")
	c.Put(s.ctx, first, models.Success(models.SourceREST, "A"))
	c.Put(s.ctx, second, models.Success(models.SourceREST, "B"))

	_, ok := c.Lookup(s.ctx, first)
	s.False(ok, "namespace was cleared")
	got, ok := c.Lookup(s.ctx, second)
	s.True(ok, "write retried after clear")
	s.Equal("B", got.CadastralReference)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheQuotaClears))
}

func (s *ResultCacheSuite) TestQuotaRetryDoesNotRefetch() {
	limited := store.NewInMemoryStore(store.WithMaxEntries(1))
	c := cache.NewResultCache(limited, cache.DefaultTTL, cache.DefaultErrorTTL)
	c.Put(s.ctx, cache.AddressKey("first"), models.Success(models.SourceREST, "A"))

	got, hit := c.GetOrFetch(s.ctx, cache.AddressKey("second"), s.fetcher(models.Success(models.SourceREST, "B")))
	s.False(hit)
	s.Equal("B", got.CadastralReference)
	s.Equal(1, s.fetches, "only the write is retried")

	_, ok := c.Lookup(s.ctx, cache.AddressKey("second"))
	s.True(ok)
}

func (s *ResultCacheSuite) TestFetchOutlivedByCallerIsNotStored() {
	key := cache.CoordinateKey(models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038})
	ctx, cancel := context.WithCancel(s.ctx)
	failure := models.Failure(models.SourceRESTSOAPFailed, models.ErrorKindTerminal, "registry lookup failed")

	got, hit := s.cache.GetOrFetch(ctx, key, func(context.Context) models.CadastralResult {
		s.fetches++
		cancel()
		return failure
	})
	s.False(hit)
	s.Equal(failure, got, "the caller still sees what was fetched")

	_, ok := s.cache.Lookup(s.ctx, key)
	s.False(ok)

	want := models.Success(models.SourceREST, "9872023VH5797S")
	got, hit = s.cache.GetOrFetch(s.ctx, key, s.fetcher(want))
	s.False(hit)
	s.Equal(want, got)
	s.Equal(2, s.fetches)
}

func (s *ResultCacheSuite) TestSweepRemovesOnlyExpired() {
	s.cache.Put(s.ctx, cache.AddressKey("fresh"), models.Success(models.SourceREST, "A"))
	s.cache.Put(s.ctx, cache.AddressKey("stale"), models.Failure(models.SourceRESTSOAPFailed, models.ErrorKindTerminal, "down"))
	s.Require().NoError(s.store.Set(s.ctx, "other_app_key", []byte("{}"), 0))

	later := requestcontext.WithTime(context.Background(), fixedNow.Add(time.Hour))
	removed, err := s.cache.Sweep(later)
	s.Require().NoError(err)
	s.Equal(1, removed)
	s.Equal(2, s.store.Len(), "fresh entry and foreign key survive")
}

func (s *ResultCacheSuite) TestClearLeavesForeignKeys() {
	s.cache.Put(s.ctx, cache.AddressKey("a"), models.Success(models.SourceREST, "A"))
	s.Require().NoError(s.store.Set(s.ctx, "settings", []byte("{}"), 0))

	removed, err := s.cache.Clear(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)
	s.Equal(1, s.store.Len())
}

// quotaStore fails every write with a quota error.
type quotaStore struct {
	*store.InMemoryStore
	sets   int
	clears int
}

func (q *quotaStore) Set(context.Context, string, []byte, time.Duration) error {
	q.sets++
	return cache.ErrQuotaExceeded
}

func (q *quotaStore) Clear(ctx context.Context, prefix string) (int, error) {
	q.clears++
	return q.InMemoryStore.Clear(ctx, prefix)
}

func TestQuotaRetryNeverLoops(t *testing.T) {
	qs := &quotaStore{InMemoryStore: store.NewInMemoryStore()}
	c := cache.NewResultCache(qs, cache.DefaultTTL, cache.DefaultErrorTTL)

	got, hit := c.GetOrFetch(context.Background(), cache.AddressKey("x"), func(context.Context) models.CadastralResult {
		return models.Success(models.SourceREST, "REF")
	})

	assert.False(t, hit)
	assert.Equal(t, "REF", got.CadastralReference, "result is returned even when it cannot be stored")
	assert.Equal(t, 2, qs.sets, "one write plus exactly one retry")
	assert.Equal(t, 1, qs.clears)
}

// failingStore fails reads with an infrastructure error.
type failingStore struct {
	*store.InMemoryStore
}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestReadFailureIsAMiss(t *testing.T) {
	c := cache.NewResultCache(failingStore{store.NewInMemoryStore()}, cache.DefaultTTL, cache.DefaultErrorTTL)
	calls := 0
	_, hit := c.GetOrFetch(context.Background(), cache.AddressKey("x"), func(context.Context) models.CadastralResult {
		calls++
		return models.Success(models.SourceREST, "REF")
	})
	assert.False(t, hit)
	assert.Equal(t, 1, calls)
}

func TestCandidateCache(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), fixedNow)
	mem := store.NewInMemoryStore()
	c := cache.NewCandidateCache(mem, cache.DefaultTTL, 0)
	coords := models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}

	c.Put(ctx, cache.CandidatesKey(coords, 5), nil)
	assert.Zero(t, mem.Len(), "empty lists are not cached when the error TTL is zero")

	want := []models.Candidate{{Rank: 1, DistanceMeters: 4.2, CadastralReference: "REF"}}
	c.Put(ctx, cache.CandidatesKey(coords, 5), want)
	got, ok := c.Lookup(ctx, cache.CandidatesKey(coords, 5))
	require.True(t, ok)
	assert.Equal(t, want, got)
}
