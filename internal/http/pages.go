package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/stem-explorer/internal/chart"
	"github.com/kjstillabower/stem-explorer/internal/contact"
	"github.com/kjstillabower/stem-explorer/internal/dataset"
	"github.com/kjstillabower/stem-explorer/internal/observability"
	"github.com/kjstillabower/stem-explorer/internal/service"
	"github.com/kjstillabower/stem-explorer/internal/trend"
	"github.com/kjstillabower/stem-explorer/internal/validation"
	"github.com/kjstillabower/stem-explorer/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxKeywordLen bounds the publications keyword in runes.
const maxKeywordLen = 200

// pageSet holds one template per section, each sharing the layout.
type pageSet struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"num":   func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	"bytes": view.FormatBytes,
}

func mustParsePages() *pageSet {
	ps := &pageSet{byName: make(map[string]*template.Template)}
	for _, name := range []string{"profile", "publications", "explorer", "contact"} {
		ps.byName[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
	return ps
}

// render executes the layout for page name into a buffer first so that a template
// error never leaves a half-written page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.pages.byName[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		observability.LoggerOrNop(r.Context()).Error("template render failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Index handles GET /?menu=<section>.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	switch view.ParseMenu(r.URL.Query().Get("menu")) {
	case view.SectionPublications:
		h.GetPublications(w, r)
	case view.SectionExplorer:
		h.GetExplorer(w, r)
	case view.SectionContact:
		h.GetContact(w, r)
	default:
		h.GetProfile(w, r)
	}
}

// GetProfile handles GET /profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	rid := observability.CorrelationID(r.Context())
	h.render(w, r, http.StatusOK, "profile", view.NewProfilePage(h.cfg.SiteTitle, rid, h.cfg.Profile))
}

// GetPublications handles GET /publications?upload=<id>&keyword=<kw>.
func (h *Handler) GetPublications(w http.ResponseWriter, r *http.Request) {
	rid := observability.CorrelationID(r.Context())
	page := view.NewPublicationsPage(h.cfg.SiteTitle, rid, nil, h.cfg.MaxUploadBytes)

	id := r.URL.Query().Get("upload")
	if id == "" {
		h.render(w, r, http.StatusOK, "publications", page)
		return
	}
	keyword, err := validation.ValidateKeyword(r.URL.Query().Get("keyword"), maxKeywordLen)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "publications", page.WithError("Please enter a single-line keyword of at most 200 characters."))
		return
	}
	v, err := h.publications.View(r.Context(), id, keyword)
	if err != nil {
		if !errors.Is(err, service.ErrUploadNotFound) {
			observability.LoggerOrNop(r.Context()).Warn("publications view failed", zap.Error(err))
		}
		h.render(w, r, http.StatusOK, "publications", page.WithError(view.UploadErrorMessage(err, h.cfg.MaxUploadBytes)))
		return
	}
	h.render(w, r, http.StatusOK, "publications", view.NewPublicationsPage(h.cfg.SiteTitle, rid, &v, h.cfg.MaxUploadBytes))
}

// PostPublications handles POST /publications (multipart field "file"). A parsed
// upload redirects to its view. On failure the form is shown again with the reason,
// above the upload and keyword that were loaded before (hidden "upload" and
// "keyword" fields).
func (h *Handler) PostPublications(w http.ResponseWriter, r *http.Request) {
	up, err := h.receiveUpload(w, r)
	if err == nil {
		http.Redirect(w, r, "/publications?upload="+up.ID, http.StatusSeeOther)
		return
	}

	msg := view.UploadErrorMessage(err, h.cfg.MaxUploadBytes)
	if errors.Is(err, errNoFile) {
		msg = "Please choose a CSV file to upload."
	}
	h.render(w, r, http.StatusOK, "publications", h.previousUploadPage(r).WithError(msg))
}

// previousUploadPage rebuilds the publications page for the upload the form was
// submitted from. It is empty when there was none or it has expired.
func (h *Handler) previousUploadPage(r *http.Request) view.PublicationsPage {
	rid := observability.CorrelationID(r.Context())
	id := r.FormValue("upload")
	if id == "" {
		return view.NewPublicationsPage(h.cfg.SiteTitle, rid, nil, h.cfg.MaxUploadBytes)
	}
	keyword, err := validation.ValidateKeyword(r.FormValue("keyword"), maxKeywordLen)
	if err != nil {
		keyword = ""
	}
	v, err := h.publications.View(r.Context(), id, keyword)
	if err != nil {
		return view.NewPublicationsPage(h.cfg.SiteTitle, rid, nil, h.cfg.MaxUploadBytes)
	}
	return view.NewPublicationsPage(h.cfg.SiteTitle, rid, &v, h.cfg.MaxUploadBytes)
}

// GetTrendChart handles GET /publications/{id}/trend.png.
func (h *Handler) GetTrendChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.publications.TrendChart(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, service.ErrUploadNotFound), errors.Is(err, trend.ErrNoYearColumn), errors.Is(err, chart.ErrNoData):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		observability.LoggerOrNop(r.Context()).Error("trend chart failed", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writePNG(w, png)
}

// GetExplorer handles GET /explorer and GET /explorer/{dataset}. Without a path
// variable the dataset comes from ?dataset= and falls back to the first one.
func (h *Handler) GetExplorer(w http.ResponseWriter, r *http.Request) {
	key, fromPath := mux.Vars(r)["dataset"]
	if !fromPath {
		key = r.URL.Query().Get("dataset")
	}
	d, ok := dataset.Lookup(key)
	if !ok {
		if fromPath {
			http.Error(w, "Unknown dataset", http.StatusNotFound)
			return
		}
		d = dataset.Default()
	}

	controls, err := view.ParseControls(d, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := h.explorer.Explore(r.Context(), d, view.Query(controls))
	if err != nil {
		writeInternalPage(w, r, err)
		return
	}
	rid := observability.CorrelationID(r.Context())
	h.render(w, r, http.StatusOK, "explorer", view.NewExplorerPage(h.cfg.SiteTitle, rid, d, controls, v))
}

// GetDatasetChart handles GET /explorer/{dataset}/chart.png?series=<n>.
func (h *Handler) GetDatasetChart(w http.ResponseWriter, r *http.Request) {
	d, ok := dataset.Lookup(mux.Vars(r)["dataset"])
	if !ok {
		http.Error(w, "Unknown dataset", http.StatusNotFound)
		return
	}
	series := 0
	if raw := r.URL.Query().Get("series"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "series must be an integer", http.StatusBadRequest)
			return
		}
		series = n
	}
	controls, err := view.ParseControls(d, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	png, err := h.explorer.Chart(r.Context(), d, view.Query(controls), series)
	switch {
	case errors.Is(err, service.ErrUnknownSeries), errors.Is(err, chart.ErrNoData):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		writeInternalPage(w, r, err)
		return
	}
	writePNG(w, png)
}

// GetContact handles GET /contact.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	rid := observability.CorrelationID(r.Context())
	h.render(w, r, http.StatusOK, "contact", view.NewContactPage(h.cfg.SiteTitle, rid, h.cfg.Profile, contact.Form{}, nil))
}

// PostContact handles POST /contact. Incomplete forms are shown again with a
// warning; accepted ones are acknowledged and the form is cleared.
func (h *Handler) PostContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	f := contact.Form{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Message: r.PostForm.Get("message"),
	}
	res, err := h.contact.Submit(r.Context(), f)
	if err == nil {
		f = contact.Form{}
	}
	rid := observability.CorrelationID(r.Context())
	h.render(w, r, http.StatusOK, "contact", view.NewContactPage(h.cfg.SiteTitle, rid, h.cfg.Profile, f, &res))
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func writeInternalPage(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerOrNop(r.Context()).Error("request failed", zap.Error(err))
	http.Error(w, "Internal error", http.StatusInternalServerError)
}
