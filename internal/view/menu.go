// Package view builds the per-request page models rendered by the HTTP layer.
// Nothing here holds state between requests.
package view

import "strings"

// Section is one entry of the sidebar menu.
type Section string

const (
	SectionProfile      Section = "profile"
	SectionPublications Section = "publications"
	SectionExplorer     Section = "explorer"
	SectionContact      Section = "contact"
)

// MenuItem is a rendered menu entry.
type MenuItem struct {
	Section Section
	Title   string
	Path    string
	Active  bool
}

var sections = []struct {
	section Section
	title   string
}{
	{SectionProfile, "Researcher Profile"},
	{SectionPublications, "Publications"},
	{SectionExplorer, "STEM Data Explorer"},
	{SectionContact, "Contact"},
}

// Title returns the menu title of s.
func (s Section) Title() string {
	for _, e := range sections {
		if e.section == s {
			return e.title
		}
	}
	return sections[0].title
}

// Path returns the page path of s.
func (s Section) Path() string {
	return "/" + string(s)
}

// ParseMenu maps a menu title or slug to its section. Unknown and empty
// values select the researcher profile.
func ParseMenu(s string) Section {
	s = strings.TrimSpace(s)
	for _, e := range sections {
		if s == e.title || strings.EqualFold(s, string(e.section)) {
			return e.section
		}
	}
	return SectionProfile
}

// Menu returns the menu in display order with active marked.
func Menu(active Section) []MenuItem {
	out := make([]MenuItem, len(sections))
	for i, e := range sections {
		out[i] = MenuItem{
			Section: e.section,
			Title:   e.title,
			Path:    e.section.Path(),
			Active:  e.section == active,
		}
	}
	return out
}
