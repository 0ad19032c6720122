package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/contact"
	"github.com/kjstillabower/stem-explorer/internal/dataset"
	"github.com/kjstillabower/stem-explorer/internal/models"
	"github.com/kjstillabower/stem-explorer/internal/service"
	"github.com/kjstillabower/stem-explorer/internal/tabular"
	"github.com/kjstillabower/stem-explorer/internal/trend"
	"github.com/kjstillabower/stem-explorer/internal/validation"
	"github.com/kjstillabower/stem-explorer/internal/view"
)

// multipartOverhead is allowed on top of the upload cap for boundaries and part headers.
const multipartOverhead = 64 << 10

// maxContactBodyBytes bounds the JSON contact payload.
const maxContactBodyBytes = 64 << 10

// errNoFile is returned when a multipart request carries no "file" part.
var errNoFile = errors.New("no file in upload form")

// receiveUpload reads the multipart "file" field and hands it to the publications service.
func (h *Handler) receiveUpload(w http.ResponseWriter, r *http.Request) (service.Uploaded, error) {
	limit := h.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = tabular.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return service.Uploaded{}, fmt.Errorf("%w: request body over %d bytes", tabular.ErrTooLarge, mbe.Limit)
		}
		return service.Uploaded{}, fmt.Errorf("%w: %v", errNoFile, err)
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	return h.publications.Upload(r.Context(), hdr.Filename, file)
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error, maxBytes int64) {
	switch {
	case errors.Is(err, errNoFile):
		writeError(w, r, http.StatusBadRequest, "MISSING_FILE", "multipart field \"file\" is required")
	case errors.Is(err, tabular.ErrTooLarge), errors.Is(err, cache.ErrTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "upload exceeds "+view.FormatBytes(maxBytes))
	case errors.Is(err, tabular.ErrMalformed):
		writeError(w, r, http.StatusUnprocessableEntity, "MALFORMED_CSV", err.Error())
	default:
		writeInternalError(w, r, err)
	}
}

// datasetSummary is the wire form of a dataset in the listing.
type datasetSummary struct {
	Slug    string          `json:"slug"`
	Title   string          `json:"title"`
	Heading string          `json:"heading"`
	Columns []models.Column `json:"columns"`
	Rows    int             `json:"rows"`
	Sliders []sliderSummary `json:"sliders"`
}

type sliderSummary struct {
	Param  string  `json:"param"`
	Label  string  `json:"label"`
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Step   float64 `json:"step"`
}

// ListDatasets handles GET /api/datasets.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	all := dataset.All()
	out := make([]datasetSummary, len(all))
	for i, d := range all {
		sliders := make([]sliderSummary, len(d.Sliders))
		for j, s := range d.Sliders {
			sliders[j] = sliderSummary{Param: s.Param, Label: s.Label, Column: s.Column, Min: s.Min, Max: s.Max, Step: s.Step}
		}
		out[i] = datasetSummary{
			Slug:    d.Slug,
			Title:   d.Title,
			Heading: d.Heading,
			Columns: d.Table.Columns,
			Rows:    d.Table.Len(),
			Sliders: sliders,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": out})
}

// GetDataset handles GET /api/datasets/{dataset}?low_<param>=&high_<param>=.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := dataset.Lookup(mux.Vars(r)["dataset"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_DATASET", "unknown dataset")
		return
	}
	controls, err := view.ParseControls(d, r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	v, err := h.explorer.Explore(r.Context(), d, view.Query(controls))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// uploadResponse is returned when an upload is accepted. Trend is null when the
// file has no Year column.
type uploadResponse struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	UploadedAt time.Time         `json:"uploadedAt"`
	Table      models.Table      `json:"table"`
	Trend      []trend.YearCount `json:"trend"`
	Notice     string            `json:"notice,omitempty"`
}

// CreatePublication handles POST /api/publications (multipart field "file").
func (h *Handler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	up, err := h.receiveUpload(w, r)
	if err != nil {
		writeUploadError(w, r, err, h.cfg.MaxUploadBytes)
		return
	}
	resp := uploadResponse{
		ID:         up.ID,
		Filename:   up.Filename,
		UploadedAt: up.UploadedAt,
		Table:      up.Table,
	}
	counts, err := trend.YearCounts(up.Table)
	if err != nil {
		resp.Notice = service.MessageNoYearColumn
	} else {
		resp.Trend = counts
	}
	w.Header().Set("Location", "/api/publications/"+up.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// GetPublication handles GET /api/publications/{id}?keyword=.
func (h *Handler) GetPublication(w http.ResponseWriter, r *http.Request) {
	keyword, err := validation.ValidateKeyword(r.URL.Query().Get("keyword"), maxKeywordLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_KEYWORD", err.Error())
		return
	}
	v, err := h.publications.View(r.Context(), mux.Vars(r)["id"], keyword)
	if err != nil {
		if errors.Is(err, service.ErrUploadNotFound) {
			writeError(w, r, http.StatusNotFound, "UPLOAD_NOT_FOUND", "upload not found or expired")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// CreateContact handles POST /api/contact with a JSON {name, email, message} body.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var f contact.Form
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContactBodyBytes))
	if err := dec.Decode(&f); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object with name, email and message")
		return
	}
	res, err := h.contact.Submit(r.Context(), f)
	if err != nil {
		writeErrorBody(w, r, http.StatusUnprocessableEntity, apiError{
			Code:    "INCOMPLETE_FORM",
			Message: res.Message,
			Missing: res.Missing,
			Invalid: res.Invalid,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
