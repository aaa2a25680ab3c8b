package web

import "strings"

const titleSeparator = " | "

// Site is the branding every page shares.
type Site struct {
	Name        string
	Description string
}

// Meta is what the layout puts in <head>.
type Meta struct {
	Title       string
	Description string
}

// Default is the metadata of pages without a title of their own.
func (s Site) Default() Meta {
	return Meta{Title: s.Name, Description: s.Description}
}

// Page returns metadata for a titled page: "<title> | <site name>".
func (s Site) Page(title string) Meta {
	return Meta{Title: s.WithTitleSuffix(title), Description: s.Description}
}

// WithTitleSuffix appends the site name unless title is empty or already
// carries it.
func (s Site) WithTitleSuffix(title string) string {
	title = strings.TrimSpace(title)
	if title == "" || title == s.Name {
		return s.Name
	}
	if strings.HasSuffix(title, titleSeparator+s.Name) {
		return title
	}
	return title + titleSeparator + s.Name
}

func (s Site) Login() Meta  { return s.Page("Login") }
func (s Site) Groups() Meta { return s.Page("Groups") }
