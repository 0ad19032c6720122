// Package service implements the explorer's operations on top of the domain
// packages: publication uploads with keyword and trend views, STEM dataset
// exploration and contact submissions.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/chart"
	"github.com/kjstillabower/stem-explorer/internal/filter"
	"github.com/kjstillabower/stem-explorer/internal/models"
	"github.com/kjstillabower/stem-explorer/internal/observability"
	"github.com/kjstillabower/stem-explorer/internal/tabular"
	"github.com/kjstillabower/stem-explorer/internal/trend"
)

const (
	// MessageAllPublications heads the table when no keyword is set.
	MessageAllPublications = "Showing all publications"
	// MessageNoYearColumn replaces the trend chart when the upload has no Year column.
	MessageNoYearColumn = "The CSV does not have a 'Year' column to visualize trends."
)

// ErrUploadNotFound is returned for unknown or expired upload IDs.
var ErrUploadNotFound = errors.New("upload not found or expired")

// FilteredHeading returns the table heading for a keyword search.
func FilteredHeading(keyword string) string {
	return fmt.Sprintf("Filtered Results for '%s':", keyword)
}

// PublicationsConfig configures the publications service.
type PublicationsConfig struct {
	MaxBytes        int64         // upload size cap (0 = tabular.DefaultMaxBytes)
	TTL             time.Duration // how long uploads stay retrievable
	CoalesceTimeout time.Duration // bound on shared loads (0 = 5s)
}

// Publications stores uploaded CSV files and builds filtered views of them.
type Publications struct {
	store  cache.UploadStore
	parser tabular.Parser
	ttl    time.Duration
	clock  clockwork.Clock
	loads  *loadCoalescer
}

// NewPublications creates a Publications service backed by store.
func NewPublications(store cache.UploadStore, cfg PublicationsConfig) *Publications {
	timeout := cfg.CoalesceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publications{
		store:  store,
		parser: tabular.Parser{MaxBytes: cfg.MaxBytes},
		ttl:    cfg.TTL,
		clock:  clockwork.NewRealClock(),
		loads:  newLoadCoalescer(timeout),
	}
}

// WithClock replaces the time source used for upload timestamps.
func (p *Publications) WithClock(c clockwork.Clock) *Publications {
	p.clock = c
	return p
}

// Uploaded describes an accepted upload.
type Uploaded struct {
	ID         string       `json:"id"`
	Filename   string       `json:"filename"`
	UploadedAt time.Time    `json:"uploadedAt"`
	Table      models.Table `json:"table"`
}

// Upload reads and parses r, stores the raw bytes and returns the new upload ID.
// Malformed or oversized input is rejected and nothing is stored.
func (p *Publications) Upload(ctx context.Context, filename string, r io.Reader) (Uploaded, error) {
	logger := observability.LoggerOrNop(ctx)

	raw, err := p.parser.Read(r)
	if err != nil {
		observability.UploadsTotal.WithLabelValues(uploadResult(err)).Inc()
		logger.Info("upload rejected", zap.String("filename", filename), zap.Error(err))
		return Uploaded{}, err
	}
	tbl, err := tabular.ParseBytes(filename, raw)
	if err != nil {
		observability.UploadsTotal.WithLabelValues(uploadResult(err)).Inc()
		logger.Info("upload rejected", zap.String("filename", filename), zap.Error(err))
		return Uploaded{}, err
	}

	up := cache.Upload{Filename: filename, Raw: raw, UploadedAt: p.clock.Now().UTC()}
	id := uuid.NewString()
	if err := p.store.Set(ctx, id, up, p.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		observability.UploadsTotal.WithLabelValues(uploadResult(err)).Inc()
		logger.Warn("upload store failed", zap.String("filename", filename), zap.Int("bytes", len(raw)), zap.Error(err))
		return Uploaded{}, fmt.Errorf("store upload: %w", err)
	}

	observability.UploadsTotal.WithLabelValues("accepted").Inc()
	observability.UploadBytes.Observe(float64(len(raw)))
	logger.Info("upload accepted",
		zap.String("uploadId", id),
		zap.String("filename", filename),
		zap.Int("bytes", len(raw)),
		zap.Int("rows", tbl.Len()),
		zap.Int("columns", len(tbl.Columns)),
	)
	return Uploaded{ID: id, Filename: filename, UploadedAt: up.UploadedAt, Table: tbl}, nil
}

func uploadResult(err error) string {
	switch {
	case errors.Is(err, tabular.ErrTooLarge), errors.Is(err, cache.ErrTooLarge):
		return "too_large"
	case errors.Is(err, tabular.ErrMalformed):
		return "malformed"
	default:
		return "store_error"
	}
}

// loadedUpload is a stored upload with its parsed table.
type loadedUpload struct {
	upload cache.Upload
	table  models.Table
}

// load fetches and parses upload id, sharing the work between concurrent callers.
func (p *Publications) load(ctx context.Context, id string) (loadedUpload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return loadedUpload{}, ErrUploadNotFound
	}
	res, shared, err := p.loads.Do(ctx, id, func(ctx context.Context) (loadedUpload, error) {
		up, ok, err := p.store.Get(ctx, id)
		if err != nil {
			observability.CacheErrorsTotal.WithLabelValues("get").Inc()
			return loadedUpload{}, fmt.Errorf("load upload: %w", err)
		}
		if !ok {
			observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
			return loadedUpload{}, ErrUploadNotFound
		}
		observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
		tbl, err := tabular.ParseBytes(up.Filename, up.Raw)
		if err != nil {
			return loadedUpload{}, fmt.Errorf("parse stored upload: %w", err)
		}
		return loadedUpload{upload: up, table: tbl}, nil
	})
	if shared {
		observability.LoggerOrNop(ctx).Debug("upload load coalesced", zap.String("uploadId", id))
	}
	return res, err
}

// PublicationsView is the publications page for one upload and keyword.
type PublicationsView struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	UploadedAt time.Time         `json:"uploadedAt"`
	Keyword    string            `json:"keyword"`
	Heading    string            `json:"heading"`
	Total      int               `json:"total"`
	All        models.Table      `json:"-"` // every uploaded row, shown above the filter
	Table      models.Table      `json:"table"`
	HasYear    bool              `json:"hasYear"`
	Trend      []trend.YearCount `json:"trend,omitempty"`
	Notice     string            `json:"notice,omitempty"`
}

// View returns upload id filtered by keyword. The Year trend always covers the
// whole upload, not the filtered rows.
func (p *Publications) View(ctx context.Context, id, keyword string) (PublicationsView, error) {
	lu, err := p.load(ctx, id)
	if err != nil {
		return PublicationsView{}, err
	}

	filtered := filter.Keyword(lu.table, keyword)
	observability.RecordFilter("publications", filtered.Len())

	v := PublicationsView{
		ID:         id,
		Filename:   lu.upload.Filename,
		UploadedAt: lu.upload.UploadedAt,
		Keyword:    keyword,
		Heading:    MessageAllPublications,
		Total:      lu.table.Len(),
		All:        lu.table,
		Table:      filtered,
	}
	if keyword != "" {
		v.Heading = FilteredHeading(keyword)
	}

	if !lu.table.HasColumn(trend.YearColumn) {
		v.Notice = MessageNoYearColumn
		return v, nil
	}
	counts, err := trend.YearCounts(lu.table)
	if err != nil {
		return PublicationsView{}, err
	}
	v.HasYear = true
	v.Trend = counts
	return v, nil
}

// TrendChart renders the per-year publication counts of upload id as a PNG.
// Returns trend.ErrNoYearColumn when the upload has no Year column.
func (p *Publications) TrendChart(ctx context.Context, id string) ([]byte, error) {
	lu, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := trend.YearCounts(lu.table)
	if err != nil {
		return nil, err
	}
	labels, values := trend.Series(counts)

	start := time.Now()
	png, err := chart.RenderBar("Publications per Year", chart.Bars(labels, values), chart.Options{YLabel: "Count"})
	observability.ChartRenderDuration.WithLabelValues("trend").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	return png, nil
}
