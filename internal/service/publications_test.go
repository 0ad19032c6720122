package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/tabular"
	"github.com/kjstillabower/stem-explorer/internal/trend"
)

const publicationsCSV = `Title,Year,Journal
Life on Mars,2021,Nature
Venus Clouds,2021,Science
MARS Dust Storms,2023,Icarus
`

func newTestPublications(t *testing.T) (*Publications, *cache.InMemoryCache) {
	t.Helper()
	store := cache.NewInMemoryCache(0)
	svc := NewPublications(store, PublicationsConfig{TTL: time.Hour})
	return svc, store
}

// failingStore is an UploadStore whose operations always fail.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (cache.Upload, bool, error) {
	return cache.Upload{}, false, f.err
}

func (f failingStore) Set(context.Context, string, cache.Upload, time.Duration) error {
	return f.err
}

func TestPublications_UploadAndView(t *testing.T) {
	svc, store := newTestPublications(t)
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(clockwork.NewFakeClockAt(now))
	ctx := context.Background()

	up, err := svc.Upload(ctx, "pubs.csv", strings.NewReader(publicationsCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, up.ID)
	assert.Equal(t, 3, up.Table.Len())
	assert.Equal(t, now, up.UploadedAt)
	assert.Equal(t, 1, store.Len())

	v, err := svc.View(ctx, up.ID, "")
	require.NoError(t, err)
	assert.Equal(t, MessageAllPublications, v.Heading)
	assert.Equal(t, "pubs.csv", v.Filename)
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, 3, v.Table.Len())
	assert.True(t, v.HasYear)
	assert.Equal(t, []trend.YearCount{{Year: "2021", Count: 2}, {Year: "2023", Count: 1}}, v.Trend)
	assert.Empty(t, v.Notice)
}

func TestPublications_ViewKeywordIsCaseInsensitive(t *testing.T) {
	svc, _ := newTestPublications(t)
	ctx := context.Background()
	up, err := svc.Upload(ctx, "pubs.csv", strings.NewReader(publicationsCSV))
	require.NoError(t, err)

	v, err := svc.View(ctx, up.ID, "mars")
	require.NoError(t, err)

	assert.Equal(t, "Filtered Results for 'mars':", v.Heading)
	assert.Equal(t, 2, v.Table.Len())
	assert.Equal(t, 3, v.Total)
	// The trend is computed from the whole upload.
	assert.Equal(t, 3, trend.Total(v.Trend))
}

func TestPublications_ViewKeywordNoMatches(t *testing.T) {
	svc, _ := newTestPublications(t)
	ctx := context.Background()
	up, err := svc.Upload(ctx, "pubs.csv", strings.NewReader(publicationsCSV))
	require.NoError(t, err)

	v, err := svc.View(ctx, up.ID, "quasar")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Table.Len())
	assert.Equal(t, []string{"Title", "Year", "Journal"}, v.Table.ColumnNames())
}

func TestPublications_NoYearColumn(t *testing.T) {
	svc, _ := newTestPublications(t)
	ctx := context.Background()
	up, err := svc.Upload(ctx, "titles.csv", strings.NewReader("Title,Journal\nA,B\n"))
	require.NoError(t, err)

	v, err := svc.View(ctx, up.ID, "")
	require.NoError(t, err)
	assert.False(t, v.HasYear)
	assert.Equal(t, MessageNoYearColumn, v.Notice)
	assert.Equal(t, 1, v.Table.Len())

	_, err = svc.TrendChart(ctx, up.ID)
	assert.True(t, errors.Is(err, trend.ErrNoYearColumn), "error = %v", err)
}

func TestPublications_TrendChartIsPNG(t *testing.T) {
	svc, _ := newTestPublications(t)
	ctx := context.Background()
	up, err := svc.Upload(ctx, "pubs.csv", strings.NewReader(publicationsCSV))
	require.NoError(t, err)

	png, err := svc.TrendChart(ctx, up.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "want PNG signature")
}

func TestPublications_UploadMalformedStoresNothing(t *testing.T) {
	svc, store := newTestPublications(t)

	_, err := svc.Upload(context.Background(), "bad.csv", strings.NewReader("a,b\n1,2,3\n"))
	assert.True(t, errors.Is(err, tabular.ErrMalformed), "error = %v", err)
	assert.Equal(t, 0, store.Len())
}

func TestPublications_UploadTooLarge(t *testing.T) {
	store := cache.NewInMemoryCache(0)
	svc := NewPublications(store, PublicationsConfig{MaxBytes: 16, TTL: time.Hour})

	_, err := svc.Upload(context.Background(), "big.csv", strings.NewReader(publicationsCSV))
	assert.True(t, errors.Is(err, tabular.ErrTooLarge), "error = %v", err)
	assert.Equal(t, 0, store.Len())
}

func TestPublications_UnknownUpload(t *testing.T) {
	svc, _ := newTestPublications(t)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		_, err := svc.View(ctx, id, "")
		assert.True(t, errors.Is(err, ErrUploadNotFound), "View(%q) error = %v", id, err)
	}
}

func TestPublications_ExpiredUpload(t *testing.T) {
	store := cache.NewInMemoryCache(0)
	svc := NewPublications(store, PublicationsConfig{TTL: time.Millisecond})
	ctx := context.Background()
	up, err := svc.Upload(ctx, "pubs.csv", strings.NewReader(publicationsCSV))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.View(ctx, up.ID, "")
	assert.True(t, errors.Is(err, ErrUploadNotFound), "error = %v", err)
}

func TestPublications_StoreErrors(t *testing.T) {
	backend := errors.New("memcached unreachable")
	svc := NewPublications(failingStore{err: backend}, PublicationsConfig{TTL: time.Hour})
	ctx := context.Background()

	_, err := svc.Upload(ctx, "pubs.csv", strings.NewReader(publicationsCSV))
	assert.True(t, errors.Is(err, backend), "Upload error = %v", err)

	_, err = svc.View(ctx, "00000000-0000-0000-0000-000000000000", "")
	assert.True(t, errors.Is(err, backend), "View error = %v", err)
	assert.False(t, errors.Is(err, ErrUploadNotFound))
}

func TestPublications_StoreTooLarge(t *testing.T) {
	svc := NewPublications(failingStore{err: cache.ErrTooLarge}, PublicationsConfig{TTL: time.Hour})

	_, err := svc.Upload(context.Background(), "pubs.csv", strings.NewReader(publicationsCSV))
	assert.True(t, errors.Is(err, cache.ErrTooLarge), "error = %v", err)
	assert.Equal(t, "too_large", uploadResult(err))
}
