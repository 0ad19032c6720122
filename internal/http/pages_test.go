package http

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestIndex_MenuSelectsSection(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", "Researcher Overview"},
		{"?menu=Researcher+Profile", "Researcher Overview"},
		{"?menu=Publications", "Upload a CSV of Publications"},
		{"?menu=STEM+Data+Explorer", "Choose a STEM category"},
		{"?menu=Contact", "Contact Information"},
		{"?menu=contact", "Contact Information"},
		{"?menu=Unknown", "Researcher Overview"},
	}
	s := newTestServer(t, Config{}, nil)
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			w := s.get("/" + tc.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if !strings.Contains(w.Body.String(), tc.want) {
				t.Errorf("body missing %q", tc.want)
			}
		})
	}
}

func TestGetProfile_RendersConfiguredProfile(t *testing.T) {
	cfg := Config{}
	cfg.Profile.Name = "Dr. Ada Lovelace"
	s := newTestServer(t, cfg, nil)

	w := s.get("/profile")

	body := w.Body.String()
	if !strings.Contains(body, "Dr. Ada Lovelace") {
		t.Error("body missing configured name")
	}
	if !strings.Contains(body, "Astrophysics") {
		t.Error("body missing default field of research")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestPublications_UploadRedirectsToView(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.do(multipartUpload(t, "POST", "/publications", "file", "pubs.csv", publicationsCSV))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || loc.Path != "/publications" || loc.Query().Get("upload") == "" {
		t.Fatalf("Location = %q, want /publications?upload=<id>", w.Header().Get("Location"))
	}
	id := loc.Query().Get("upload")

	page := s.get(loc.String()).Body.String()
	if !strings.Contains(page, "Showing all publications") {
		t.Error("page missing unfiltered heading")
	}
	if !strings.Contains(page, "/publications/"+id+"/trend.png") {
		t.Error("page missing trend chart")
	}

	filtered := s.get("/publications?upload=" + id + "&keyword=mars").Body.String()
	if !strings.Contains(filtered, "Filtered Results for &#39;mars&#39;:") {
		t.Error("page missing filtered heading")
	}
	if !strings.Contains(filtered, "MARS Dust Storms") {
		t.Error("case-insensitive match missing")
	}
	if n := strings.Count(filtered, "Venus Clouds"); n != 1 {
		t.Errorf("Venus Clouds appears %d times, want once (full table only)", n)
	}
}

func TestPublications_FailedUploadKeepsLoadedFile(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := s.do(multipartUpload(t, "POST", "/publications", "file", "pubs.csv", publicationsCSV))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	loc, _ := url.Parse(w.Header().Get("Location"))
	id := loc.Query().Get("upload")

	before := s.get("/publications?upload=" + id + "&keyword=mars").Body.String()
	if !strings.Contains(before, `name="upload" value="`+id+`"`) || !strings.Contains(before, `name="keyword" value="mars"`) {
		t.Fatal("upload form does not carry the loaded upload and keyword")
	}

	w = s.do(multipartUploadWithValues(t, "POST", "/publications",
		map[string]string{"upload": id, "keyword": "mars"}, "file", "bad.csv", "a,b\n1,2,3\n"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	page := w.Body.String()
	if !strings.Contains(page, "Could not read the uploaded file") {
		t.Error("page missing upload error")
	}
	if !strings.Contains(page, "Venus Clouds") {
		t.Error("previously loaded table was dropped")
	}
	if !strings.Contains(page, "Filtered Results for &#39;mars&#39;:") {
		t.Error("keyword was dropped")
	}
	if !strings.Contains(page, "/publications/"+id+"/trend.png") {
		t.Error("trend chart was dropped")
	}

	w = s.do(multipartUpload(t, "POST", "/publications?upload="+id+"&keyword=mars", "file", "bad.csv", "a,b\n1,2,3\n"))
	page = w.Body.String()
	if !strings.Contains(page, "Could not read the uploaded file") || !strings.Contains(page, "MARS Dust Storms") {
		t.Error("upload and keyword in the query should also be kept")
	}
}

func TestPublications_FailedUploadWithExpiredPrevious(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.do(multipartUploadWithValues(t, "POST", "/publications",
		map[string]string{"upload": "00000000-0000-0000-0000-000000000000"}, "file", "bad.csv", "a,b\n1,2,3\n"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Could not read the uploaded file") {
		t.Error("page missing upload error")
	}
}

func TestPublications_NoYearColumnNotice(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := s.do(multipartUpload(t, "POST", "/publications", "file", "titles.csv", "Title,Journal\nA,B\n"))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}

	page := s.get(w.Header().Get("Location")).Body.String()
	if !strings.Contains(page, "The CSV does not have a &#39;Year&#39; column to visualize trends.") {
		t.Error("page missing no-Year notice")
	}
	if strings.Contains(page, "trend.png") {
		t.Error("page must not link a trend chart without a Year column")
	}
}

func TestPublications_MalformedUploadShowsError(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.do(multipartUpload(t, "POST", "/publications", "file", "bad.csv", "a,b\n1,2,3\n"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Could not read the uploaded file: line 2") || !strings.Contains(body, "Please try again.") {
		t.Errorf("body missing parse error message")
	}
	if s.store.Len() != 0 {
		t.Errorf("store has %d uploads, want 0", s.store.Len())
	}
}

func TestPublications_MissingFile(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.do(multipartUpload(t, "POST", "/publications", "other", "x.csv", "a\n1\n"))

	if !strings.Contains(w.Body.String(), "Please choose a CSV file to upload.") {
		t.Error("body missing missing-file message")
	}
}

func TestPublications_ExpiredUpload(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.get("/publications?upload=00000000-0000-0000-0000-000000000000")

	if !strings.Contains(w.Body.String(), "That upload has expired.") {
		t.Error("body missing expired message")
	}
}

func TestGetTrendChart(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	w := s.do(multipartUpload(t, "POST", "/publications", "file", "pubs.csv", publicationsCSV))
	loc, _ := url.Parse(w.Header().Get("Location"))
	id := loc.Query().Get("upload")

	png := s.get("/publications/" + id + "/trend.png")

	if png.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", png.Code)
	}
	if ct := png.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(png.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	if got := s.get("/publications/unknown/trend.png").Code; got != http.StatusNotFound {
		t.Errorf("unknown upload status = %d, want 404", got)
	}
}

func TestGetExplorer_FiltersDataset(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.get("/explorer/weather?low_temperature=10&high_temperature=30&low_humidity=60&high_humidity=75")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "2 of 5 rows match.") {
		t.Error("body missing match count")
	}
	if !strings.Contains(body, "/explorer/weather/chart.png?") {
		t.Error("body missing chart links")
	}
}

func TestGetExplorer_DatasetSelector(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	if body := s.get("/explorer").Body.String(); !strings.Contains(body, "Physics Experiment Data") {
		t.Error("default dataset should be physics")
	}
	if body := s.get("/explorer?dataset=Astronomy+Observations").Body.String(); !strings.Contains(body, "Astronomy Observation Data") {
		t.Error("selector by title should pick astronomy")
	}
}

func TestGetExplorer_Errors(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	if got := s.get("/explorer/chemistry").Code; got != http.StatusNotFound {
		t.Errorf("unknown dataset status = %d, want 404", got)
	}
	if got := s.get("/explorer/physics?low_energy=lots").Code; got != http.StatusBadRequest {
		t.Errorf("invalid filter status = %d, want 400", got)
	}
}

func TestGetExplorer_EmptySelection(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	body := s.get("/explorer/physics?low_energy=9&high_energy=10").Body.String()

	if !strings.Contains(body, "No rows match the selected ranges.") {
		t.Error("body missing empty notice")
	}
	if strings.Contains(body, "chart.png") {
		t.Error("empty selection must not link charts")
	}
}

func TestGetDatasetChart(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	w := s.get("/explorer/weather/chart.png?series=1")
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("status = %d, want PNG", w.Code)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/explorer/weather/chart.png?series=x", http.StatusBadRequest},
		{"/explorer/weather/chart.png?series=5", http.StatusNotFound},
		{"/explorer/physics/chart.png?low_energy=9", http.StatusNotFound},
		{"/explorer/nope/chart.png", http.StatusNotFound},
	}
	for _, tc := range tests {
		if got := s.get(tc.path).Code; got != tc.want {
			t.Errorf("GET %s status = %d, want %d", tc.path, got, tc.want)
		}
	}
}

func postForm(s *testServer, path string, form url.Values) string {
	req := httptestRequest("POST", path, form.Encode())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req).Body.String()
}

func TestPostContact_Incomplete(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	body := postForm(s, "/contact", url.Values{"name": {"Ada"}})

	if !strings.Contains(body, "Please fill in: email, message.") {
		t.Error("body missing warning")
	}
	if !strings.Contains(body, `value="Ada"`) {
		t.Error("entered name should be kept")
	}
}

func TestPostContact_Accepted(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	body := postForm(s, "/contact", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "message": {"Hello"}})

	if !strings.Contains(body, "Thanks Ada, your message has been received.") {
		t.Error("body missing acknowledgement")
	}
	if strings.Contains(body, `value="Ada"`) {
		t.Error("form should be cleared after acceptance")
	}
	if n := s.logs.FilterMessage("contact message received").Len(); n != 1 {
		t.Errorf("acceptance log entries = %d, want 1", n)
	}
}
