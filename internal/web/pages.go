package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/url"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = template.Must(template.New("pages").ParseFS(templateFS, "templates/*.html"))

// Static returns the stylesheet tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func page(name string, data any) templ.Component {
	return templ.FromGoHTML(pages.Lookup(name), data)
}

const (
	TabLogin  = "login"
	TabSignup = "signup"
)

type AlertKind string

const (
	AlertError   AlertKind = "error"
	AlertSuccess AlertKind = "success"
	AlertInfo    AlertKind = "info"
)

type Alert struct {
	Kind    AlertKind
	Message string
}

// Heading is the alert's title line.
func (a Alert) Heading() string {
	switch a.Kind {
	case AlertError:
		return "Error"
	case AlertSuccess:
		return "Success"
	}
	return "Notice"
}

type SocialLink struct {
	Label string
	URL   string
}

// LoginPage is the login/signup form. Passwords are never echoed back.
type LoginPage struct {
	Tab         string
	Name        string
	Email       string
	Next        string
	CSRFToken   string
	Alert       *Alert
	FieldErrors map[string]string
	Socials     []SocialLink
}

func (p LoginPage) Signup() bool { return p.Tab == TabSignup }

func (p LoginPage) SubmitLabel() string {
	if p.Signup() {
		return "Sign up"
	}
	return "Login"
}

// TabURL links to the given tab, keeping the post-login destination.
func (p LoginPage) TabURL(tab string) string {
	q := url.Values{}
	if tab == TabSignup {
		q.Set("tab", TabSignup)
	}
	if p.Next != "" {
		q.Set("next", p.Next)
	}
	if len(q) == 0 {
		return "/login"
	}
	return "/login?" + q.Encode()
}

// DismissURL re-renders the active tab without the alert.
func (p LoginPage) DismissURL() string { return p.TabURL(p.Tab) }

func (p LoginPage) FieldError(field string) string { return p.FieldErrors[field] }

func LoginBody(p LoginPage) templ.Component {
	if p.Tab != TabSignup {
		p.Tab = TabLogin
	}
	return page("login", p)
}

type HomePage struct {
	Site     Site
	UserName string
	SignedIn bool
}

func HomeBody(p HomePage) templ.Component { return page("home", p) }

type GroupsPage struct {
	UserName string
	Path     string
}

func GroupsBody(p GroupsPage) templ.Component { return page("groups", p) }
