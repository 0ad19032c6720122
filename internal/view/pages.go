package view

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/contact"
	"github.com/kjstillabower/stem-explorer/internal/dataset"
	"github.com/kjstillabower/stem-explorer/internal/profile"
	"github.com/kjstillabower/stem-explorer/internal/service"
	"github.com/kjstillabower/stem-explorer/internal/tabular"
)

// Layout is shared by every page.
type Layout struct {
	SiteTitle string
	Title     string
	Section   Section
	Menu      []MenuItem
	RequestID string
}

func newLayout(siteTitle string, s Section, requestID string) Layout {
	return Layout{
		SiteTitle: siteTitle,
		Title:     s.Title(),
		Section:   s,
		Menu:      Menu(s),
		RequestID: requestID,
	}
}

// ProfilePage is the researcher profile section.
type ProfilePage struct {
	Layout
	Profile profile.Profile
}

// NewProfilePage builds the profile page.
func NewProfilePage(siteTitle, requestID string, p profile.Profile) ProfilePage {
	return ProfilePage{Layout: newLayout(siteTitle, SectionProfile, requestID), Profile: p}
}

// PublicationsPage is the upload form plus, once a file is loaded, its table and trend.
type PublicationsPage struct {
	Layout
	Upload   *service.PublicationsView
	Keyword  string
	Error    string
	TrendURL string
	MaxBytes int64
}

// NewPublicationsPage builds the publications page. v is nil until a file is uploaded.
func NewPublicationsPage(siteTitle, requestID string, v *service.PublicationsView, maxBytes int64) PublicationsPage {
	p := PublicationsPage{
		Layout:   newLayout(siteTitle, SectionPublications, requestID),
		Upload:   v,
		MaxBytes: maxBytes,
	}
	if v != nil {
		p.Keyword = v.Keyword
		if v.HasYear {
			p.TrendURL = "/publications/" + url.PathEscape(v.ID) + "/trend.png"
		}
	}
	return p
}

// WithError returns p showing msg above whatever upload is already loaded.
func (p PublicationsPage) WithError(msg string) PublicationsPage {
	p.Error = msg
	return p
}

// UploadErrorMessage turns an upload or load failure into the text shown on the page.
func UploadErrorMessage(err error, maxBytes int64) string {
	switch {
	case errors.Is(err, service.ErrUploadNotFound):
		return "That upload has expired. Please upload the file again."
	case errors.Is(err, tabular.ErrTooLarge), errors.Is(err, cache.ErrTooLarge):
		return fmt.Sprintf("Could not read the uploaded file: it is larger than %s. Please try again.", FormatBytes(maxBytes))
	case errors.Is(err, tabular.ErrMalformed):
		reason := strings.TrimPrefix(err.Error(), tabular.ErrMalformed.Error()+": ")
		return "Could not read the uploaded file: " + reason + ". Please try again."
	default:
		return "Could not read the uploaded file: an internal error occurred. Please try again."
	}
}

// FormatBytes renders an upload size limit; n <= 0 means the default limit.
func FormatBytes(n int64) string {
	if n <= 0 {
		n = tabular.DefaultMaxBytes
	}
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + " MB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + " KB"
	default:
		return strconv.FormatInt(n, 10) + " bytes"
	}
}

// ChartLink points at one rendered bar chart.
type ChartLink struct {
	Title string
	URL   string
}

// DatasetOption is an entry of the dataset selector.
type DatasetOption struct {
	Slug     string
	Title    string
	Selected bool
}

// ExplorerPage is one dataset with its slider controls, filtered table and charts.
type ExplorerPage struct {
	Layout
	Datasets []DatasetOption
	Dataset  *dataset.Dataset
	Controls []Control
	Result   service.ExplorerView
	Charts   []ChartLink
	Empty    bool
}

// NewExplorerPage builds the explorer page for the filtered result v.
func NewExplorerPage(siteTitle, requestID string, d *dataset.Dataset, controls []Control, v service.ExplorerView) ExplorerPage {
	all := dataset.All()
	opts := make([]DatasetOption, len(all))
	for i, ds := range all {
		opts[i] = DatasetOption{Slug: ds.Slug, Title: ds.Title, Selected: ds == d}
	}
	page := ExplorerPage{
		Layout:   newLayout(siteTitle, SectionExplorer, requestID),
		Datasets: opts,
		Dataset:  d,
		Controls: controls,
		Result:   v,
		Empty:    v.Matching == 0,
	}
	if !page.Empty {
		params := Encode(controls)
		for i, s := range d.Charts {
			params.Set("series", strconv.Itoa(i))
			page.Charts = append(page.Charts, ChartLink{
				Title: s.Title,
				URL:   "/explorer/" + url.PathEscape(d.Slug) + "/chart.png?" + params.Encode(),
			})
		}
	}
	return page
}

// ContactPage is the contact form with the outcome of the last submission.
type ContactPage struct {
	Layout
	Profile profile.Profile
	Form    contact.Form
	Result  *contact.Result
}

// NewContactPage builds the contact page. res is nil before the first submission.
func NewContactPage(siteTitle, requestID string, p profile.Profile, f contact.Form, res *contact.Result) ContactPage {
	return ContactPage{
		Layout:  newLayout(siteTitle, SectionContact, requestID),
		Profile: p,
		Form:    f,
		Result:  res,
	}
}
