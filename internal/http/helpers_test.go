package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/service"
)

const publicationsCSV = "Title,Year,Journal\nLife on Mars,2021,Nature\nVenus Clouds,2021,Science\nMARS Dust Storms,2023,Icarus\n"

type testServer struct {
	router  *mux.Router
	handler *Handler
	store   *cache.InMemoryCache
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T, cfg Config, limiter *rate.Limiter) *testServer {
	t.Helper()
	store := cache.NewInMemoryCache(0)
	pubs := service.NewPublications(store, service.PublicationsConfig{MaxBytes: cfg.MaxUploadBytes, TTL: time.Hour})
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	h := NewHandler(pubs, service.NewExplorer(), service.NewContact(), cfg, logger)
	router := NewRouter(h, RouterConfig{RequestTimeout: 5 * time.Second, Limiter: limiter}, logger)
	return &testServer{router: router, handler: h, store: store, logs: logs}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest("GET", path, nil))
}

func multipartUpload(t *testing.T, method, path, field, filename, content string) *http.Request {
	t.Helper()
	return multipartUploadWithValues(t, method, path, nil, field, filename, content)
}

// multipartUploadWithValues writes the plain form values before the file part,
// the way a browser submits hidden inputs that precede the file input.
func multipartUploadWithValues(t *testing.T, method, path string, values map[string]string, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField %s: %v", k, err)
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiError {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error
}

func httptestRequest(method, path, body string) *http.Request {
	return httptest.NewRequest(method, path, strings.NewReader(body))
}
