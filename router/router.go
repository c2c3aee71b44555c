// Package router resolves URL paths against a static, nested route table.
//
// Routes are checked in declaration order and the first match wins, so
// specific patterns such as "posts/new" must be declared before general
// ones such as "posts/:id". Child paths are relative to their parent.
package router

import (
	"fmt"
	"strings"
)

// Params holds the values captured by ":name" segments
type Params map[string]string

// Get returns the named param or an empty string
func (p Params) Get(name string) string {
	return p[name]
}

// Route binds a path pattern to a component. Index is mounted inside
// Component when the path matches exactly and no child route does.
type Route[C any] struct {
	Path      string
	Component C
	Index     *C
	Routes    []Route[C]
}

// Match is the result of a successful resolution
type Match[C any] struct {
	// Components to mount, outermost first
	Components []C
	Params     Params
	// Pattern is the full path pattern of the innermost matched route
	Pattern string
}

// Table is an immutable route table
type Table[C any] struct {
	routes []compiled[C]
}

type compiled[C any] struct {
	segments  []string
	pattern   string
	component C
	index     *C
	children  []compiled[C]
}

// New validates the routes and builds a table
func New[C any](routes ...Route[C]) (*Table[C], error) {
	compiledRoutes, err := compile(routes, "")
	if err != nil {
		return nil, err
	}
	return &Table[C]{routes: compiledRoutes}, nil
}

// MustNew is New that panics on an invalid table
func MustNew[C any](routes ...Route[C]) *Table[C] {
	table, err := New(routes...)
	if err != nil {
		panic(err)
	}
	return table
}

func compile[C any](routes []Route[C], parent string) ([]compiled[C], error) {
	out := make([]compiled[C], 0, len(routes))
	for _, route := range routes {
		segments := split(route.Path)
		pattern := "/" + strings.Join(append(split(parent), segments...), "/")

		for i, segment := range segments {
			if segment == "*" && i != len(segments)-1 {
				return nil, fmt.Errorf("route %q: wildcard must be the last segment", pattern)
			}
			if segment == ":" {
				return nil, fmt.Errorf("route %q: empty parameter name", pattern)
			}
		}
		if len(segments) > 0 && segments[len(segments)-1] == "*" && len(route.Routes) > 0 {
			return nil, fmt.Errorf("route %q: wildcard route cannot have children", pattern)
		}

		children, err := compile(route.Routes, pattern)
		if err != nil {
			return nil, err
		}

		out = append(out, compiled[C]{
			segments:  segments,
			pattern:   pattern,
			component: route.Component,
			index:     route.Index,
			children:  children,
		})
	}
	return out, nil
}

func split(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// Resolve returns the components to mount for path, outermost first, and
// the params captured along the way.
func (t *Table[C]) Resolve(path string) (Match[C], bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	params := Params{}
	components, pattern, ok := resolve(t.routes, split(path), params)
	if !ok {
		return Match[C]{}, false
	}
	return Match[C]{Components: components, Params: params, Pattern: pattern}, true
}

func resolve[C any](routes []compiled[C], segments []string, params Params) ([]C, string, bool) {
	for _, route := range routes {
		captured := Params{}
		rest, ok := consume(route.segments, segments, captured)
		if !ok {
			continue
		}

		if len(rest) > 0 {
			inner, pattern, ok := resolve(route.children, rest, params)
			if !ok {
				continue
			}
			for k, v := range captured {
				if _, exists := params[k]; !exists {
					params[k] = v
				}
			}
			return append([]C{route.component}, inner...), pattern, true
		}

		for k, v := range captured {
			params[k] = v
		}
		components := []C{route.component}
		if route.index != nil {
			components = append(components, *route.index)
		}
		return components, route.pattern, true
	}
	return nil, "", false
}

// consume matches the route segments against the head of path and returns
// the unmatched remainder.
func consume(pattern []string, path []string, params Params) ([]string, bool) {
	for i, segment := range pattern {
		if segment == "*" {
			params["*"] = strings.Join(path[i:], "/")
			return nil, true
		}
		if i >= len(path) {
			return nil, false
		}
		switch {
		case strings.HasPrefix(segment, ":"):
			params[segment[1:]] = path[i]
		case segment != path[i]:
			return nil, false
		}
	}
	return path[len(pattern):], true
}
