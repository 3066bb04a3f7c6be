package router

import (
	"net/url"
	"strings"
)

// Middleware is the access requirement declared in route metadata.
type Middleware string

const (
	// MiddlewareNone marks a public route.
	MiddlewareNone Middleware = ""
	// MiddlewareAuth marks a route that requires an authenticated session.
	MiddlewareAuth Middleware = "auth"
)

// Normalize maps the spelled-out "none" onto [MiddlewareNone].
func (m Middleware) Normalize() Middleware {
	v := Middleware(strings.ToLower(strings.TrimSpace(string(m))))
	if v == "none" {
		return MiddlewareNone
	}
	return v
}

// Breadcrumb is one entry of a page's breadcrumb trail.
type Breadcrumb struct {
	Label string `yaml:"label" json:"label"`
	Link  string `yaml:"link,omitempty" json:"link,omitempty"`
}

// Meta is the route metadata consumed by the navigation guard.
type Meta struct {
	Middleware  Middleware   `yaml:"middleware,omitempty" json:"middleware,omitempty"`
	PageTitle   string       `yaml:"pageTitle,omitempty" json:"pageTitle,omitempty"`
	Breadcrumbs []Breadcrumb `yaml:"breadcrumbs,omitempty" json:"breadcrumbs,omitempty"`
}

// RequiresAuth reports whether the route is gated behind authentication.
func (m Meta) RequiresAuth() bool {
	return m.Middleware.Normalize() == MiddlewareAuth
}

// merge overlays child on m; non-empty child fields win.
func (m Meta) merge(child Meta) Meta {
	out := m
	if child.Middleware != "" {
		out.Middleware = child.Middleware.Normalize()
	}
	if child.PageTitle != "" {
		out.PageTitle = child.PageTitle
	}
	if child.Breadcrumbs != nil {
		out.Breadcrumbs = append([]Breadcrumb(nil), child.Breadcrumbs...)
	}
	return out
}

// RouteRecord is one declared entry of the route table.
type RouteRecord struct {
	Path     string        `yaml:"path"`
	Name     string        `yaml:"name,omitempty"`
	Redirect string        `yaml:"redirect,omitempty"`
	Meta     Meta          `yaml:"meta,omitempty"`
	Children []RouteRecord `yaml:"children,omitempty"`
}

// Route is a resolved navigation target.
type Route struct {
	Name    string
	Path    string
	Pattern string
	Params  map[string]string
	Query   url.Values
	Meta    Meta
}

// FullPath returns the path with its query string.
func (r *Route) FullPath() string {
	if r == nil {
		return ""
	}
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Is reports whether r is the named route. A nil route never matches.
func (r *Route) Is(name string) bool {
	return r != nil && r.Name != "" && r.Name == name
}

// RouteName returns the route name, or "" for nil.
func (r *Route) RouteName() string {
	if r == nil {
		return ""
	}
	return r.Name
}
