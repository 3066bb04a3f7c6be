package router

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const maxRecordRedirects = 10

var (
	// ErrNotFound is returned when no record matches a location or name.
	ErrNotFound = errors.New("route not found")
	// ErrInvalidTable is returned for malformed route tables.
	ErrInvalidTable = errors.New("invalid route table")
)

type entry struct {
	name     string
	redirect string
	meta     Meta
	pattern  pattern
	order    int
}

// Table is a compiled, read-only route table.
type Table struct {
	entries []entry
	byName  map[string]int
}

// NewTable compiles records into a [Table].
func NewTable(records []RouteRecord) (*Table, error) {
	t := &Table{byName: make(map[string]int)}
	if err := t.add(records, "", Meta{}); err != nil {
		return nil, err
	}
	if len(t.entries) == 0 {
		return nil, fmt.Errorf("%w: no routable records", ErrInvalidTable)
	}
	return t, nil
}

func (t *Table) add(records []RouteRecord, parentPath string, parentMeta Meta) error {
	for _, rec := range records {
		full := joinPath(parentPath, rec.Path)
		if full == "" {
			return fmt.Errorf("%w: record %q has no path", ErrInvalidTable, rec.Name)
		}
		meta := parentMeta.merge(rec.Meta)

		if err := t.add(rec.Children, full, meta); err != nil {
			return err
		}
		// layout records only exist to carry children and shared meta
		if len(rec.Children) > 0 && rec.Name == "" && rec.Redirect == "" {
			continue
		}

		p, err := compilePattern(full)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTable, err)
		}
		if rec.Name != "" {
			if _, dup := t.byName[rec.Name]; dup {
				return fmt.Errorf("%w: duplicate route name %q", ErrInvalidTable, rec.Name)
			}
			t.byName[rec.Name] = len(t.entries)
		}
		t.entries = append(t.entries, entry{
			name:     rec.Name,
			redirect: rec.Redirect,
			meta:     meta,
			pattern:  p,
			order:    len(t.entries),
		})
	}
	return nil
}

// Resolve matches location (a path with optional query) and follows record-level
// redirects.
func (t *Table) Resolve(location string) (*Route, error) {
	for hops := 0; hops <= maxRecordRedirects; hops++ {
		r, redirect, err := t.resolveOnce(location)
		if err != nil {
			return nil, err
		}
		if redirect == "" {
			return r, nil
		}
		location = redirect
	}
	return nil, fmt.Errorf("%w: record redirects exceed %d hops", ErrRedirectLoop, maxRecordRedirects)
}

func (t *Table) resolveOnce(location string) (*Route, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, "", fmt.Errorf("parse location %q: %w", location, err)
	}
	parts := splitPath(u.Path)
	for i, part := range parts {
		if unescaped, err := url.PathUnescape(part); err == nil {
			parts[i] = unescaped
		}
	}

	best := -1
	bestScore := -1
	var bestParams map[string]string
	for i, e := range t.entries {
		params, score, ok := e.pattern.match(parts)
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore, bestParams = i, score, params
		}
	}
	if best < 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, location)
	}

	e := t.entries[best]
	if e.redirect != "" {
		return nil, e.redirect, nil
	}
	return t.route(e, "/"+strings.Join(parts, "/"), bestParams, u.Query()), "", nil
}

// ResolveName builds the route registered under name.
func (t *Table) ResolveName(name string, params map[string]string) (*Route, error) {
	idx, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
	}
	e := t.entries[idx]
	if e.redirect != "" {
		return t.Resolve(e.redirect)
	}
	path, err := e.pattern.build(params)
	if err != nil {
		return nil, err
	}

	captured := make(map[string]string, len(params))
	for k, v := range params {
		captured[k] = v
	}
	return t.route(e, path, captured, nil), nil
}

func (t *Table) route(e entry, path string, params map[string]string, query url.Values) *Route {
	meta := e.meta
	meta.Breadcrumbs = append([]Breadcrumb(nil), e.meta.Breadcrumbs...)
	return &Route{
		Name:    e.name,
		Path:    path,
		Pattern: e.pattern.raw,
		Params:  params,
		Query:   query,
		Meta:    meta,
	}
}

// Has reports whether a route is registered under name.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Names returns every registered route name in lexical order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.byName))
	for name := range t.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Summary describes one routable entry for listings.
type Summary struct {
	Name     string
	Pattern  string
	Redirect string
	Meta     Meta
}

// Summaries lists the routable entries in declaration order.
func (t *Table) Summaries() []Summary {
	out := make([]Summary, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, Summary{Name: e.name, Pattern: e.pattern.raw, Redirect: e.redirect, Meta: e.meta})
	}
	return out
}
