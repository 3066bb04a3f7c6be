package router

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type segmentKind uint8

const (
	segStatic segmentKind = iota
	segParam
	segOptional
	segCatchAll
)

// score weights; higher is more specific
const (
	scoreStatic   = 4
	scoreParam    = 2
	scoreOptional = 1
)

type segment struct {
	kind  segmentKind
	value string
}

type pattern struct {
	raw      string
	segments []segment
}

func compilePattern(raw string) (pattern, error) {
	p := pattern{raw: raw}
	for _, part := range splitPath(raw) {
		if !strings.HasPrefix(part, ":") {
			p.segments = append(p.segments, segment{kind: segStatic, value: part})
			continue
		}

		name := part[1:]
		switch {
		case strings.HasSuffix(name, "(.*)*"):
			name = strings.TrimSuffix(name, "(.*)*")
			p.segments = append(p.segments, segment{kind: segCatchAll, value: name})
		case strings.HasSuffix(name, "?"):
			name = strings.TrimSuffix(name, "?")
			p.segments = append(p.segments, segment{kind: segOptional, value: name})
		default:
			p.segments = append(p.segments, segment{kind: segParam, value: name})
		}
		if name == "" {
			return pattern{}, fmt.Errorf("route %q: empty parameter name", raw)
		}
	}

	for i, s := range p.segments {
		if s.kind == segCatchAll && i != len(p.segments)-1 {
			return pattern{}, fmt.Errorf("route %q: catch-all must be the last segment", raw)
		}
	}
	return p, nil
}

// match returns the captured params and a specificity score.
func (p pattern) match(parts []string) (map[string]string, int, bool) {
	params := map[string]string{}
	score := 0
	i := 0
	for _, s := range p.segments {
		switch s.kind {
		case segStatic:
			if i >= len(parts) || parts[i] != s.value {
				return nil, 0, false
			}
			score += scoreStatic
			i++
		case segParam:
			if i >= len(parts) {
				return nil, 0, false
			}
			params[s.value] = parts[i]
			score += scoreParam
			i++
		case segOptional:
			if i < len(parts) {
				params[s.value] = parts[i]
				i++
			}
			score += scoreOptional
		case segCatchAll:
			params[s.value] = strings.Join(parts[i:], "/")
			i = len(parts)
		}
	}
	if i != len(parts) {
		return nil, 0, false
	}
	return params, score, true
}

// ErrMissingParam is returned when a named route is built without a required param.
var ErrMissingParam = errors.New("missing route param")

func (p pattern) build(params map[string]string) (string, error) {
	parts := make([]string, 0, len(p.segments))
	for _, s := range p.segments {
		switch s.kind {
		case segStatic:
			parts = append(parts, s.value)
		case segParam:
			v, ok := params[s.value]
			if !ok || v == "" {
				return "", fmt.Errorf("%w %q for %s", ErrMissingParam, s.value, p.raw)
			}
			parts = append(parts, url.PathEscape(v))
		case segOptional, segCatchAll:
			if v := params[s.value]; v != "" {
				parts = append(parts, v)
			}
		}
	}
	return "/" + strings.Join(parts, "/"), nil
}

func splitPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "/") {
		return child
	}
	if child == "" {
		return parent
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}
