package provider

import (
	"fmt"
	"strings"
)

// Social is a sign-in option delegated to the auth provider
// (e.g. "Continue with Google").
type Social struct {
	Name  string
	Label string
}

// Registry holds the social sign-in options enabled for this deployment.
// It performs no auth logic itself.
type Registry struct {
	order     []string
	providers map[string]Social
}

var knownLabels = map[string]string{
	"google":    "Google",
	"github":    "GitHub",
	"gitlab":    "GitLab",
	"apple":     "Apple",
	"azure":     "Microsoft",
	"discord":   "Discord",
	"bitbucket": "Bitbucket",
}

// NewRegistry registers providers by name. Blank and duplicate names are skipped.
func NewRegistry(names ...string) *Registry {
	r := &Registry{providers: make(map[string]Social)}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := r.providers[name]; dup {
			continue
		}
		label, ok := knownLabels[name]
		if !ok {
			label = strings.ToUpper(name[:1]) + name[1:]
		}
		r.providers[name] = Social{Name: name, Label: label}
		r.order = append(r.order, name)
	}
	return r
}

// Get returns the social provider by name or an error if not enabled.
func (r *Registry) Get(name string) (Social, error) {
	p, ok := r.providers[name]
	if !ok {
		return Social{}, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

// List returns the enabled providers in registration order.
func (r *Registry) List() []Social {
	out := make([]Social, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}
