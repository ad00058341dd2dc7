package fixture

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/valyala/fasthttp"
)

type MatchResult int

const (
	Matched MatchResult = iota
	MethodNotAllowed
	NotFound
	// Options is an OPTIONS request on a known path without its own
	// OPTIONS fixture. The allowed methods are returned with it.
	Options
)

// Registry maps (method, path) to fixtures. Lookups are exact.
type Registry struct {
	mu       sync.RWMutex
	routes   map[string]map[string]*Fixture
	fixtures []*Fixture
}

func NewRegistry(fixtures []Fixture) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(fixtures); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace swaps the whole catalog. On error the current catalog is kept.
func (r *Registry) Replace(fixtures []Fixture) error {
	routes := make(map[string]map[string]*Fixture, len(fixtures))
	ordered := make([]*Fixture, 0, len(fixtures))

	for i := range fixtures {
		f := fixtures[i]
		f.Method = strings.ToUpper(f.Method)

		methods, ok := routes[f.Path]
		if !ok {
			methods = make(map[string]*Fixture)
			routes[f.Path] = methods
		}
		if _, dup := methods[f.Method]; dup {
			return fmt.Errorf("duplicate fixture for %s", f.key())
		}
		methods[f.Method] = &f
		ordered = append(ordered, &f)
	}

	r.mu.Lock()
	r.routes = routes
	r.fixtures = ordered
	r.mu.Unlock()
	return nil
}

// Match looks up a fixture. When the path is known but the method is not,
// the allowed methods are returned with MethodNotAllowed. GET fixtures also
// answer HEAD, and every known path answers OPTIONS.
func (r *Registry) Match(method, path string) (*Fixture, []string, MatchResult) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods, ok := r.routes[path]
	if !ok {
		return nil, nil, NotFound
	}

	method = strings.ToUpper(method)
	if f, ok := methods[method]; ok {
		return f, nil, Matched
	}
	if method == fasthttp.MethodHead {
		if f, ok := methods[fasthttp.MethodGet]; ok {
			return f, nil, Matched
		}
	}
	if method == fasthttp.MethodOptions {
		return nil, allowedMethods(methods), Options
	}

	return nil, allowedMethods(methods), MethodNotAllowed
}

func (r *Registry) List() []Fixture {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Fixture, 0, len(r.fixtures))
	for _, f := range r.fixtures {
		out = append(out, *f)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fixtures)
}

func allowedMethods(methods map[string]*Fixture) []string {
	allowed := make([]string, 0, len(methods)+2)
	for m := range methods {
		allowed = append(allowed, m)
	}
	if _, ok := methods[fasthttp.MethodGet]; ok {
		if _, ok := methods[fasthttp.MethodHead]; !ok {
			allowed = append(allowed, fasthttp.MethodHead)
		}
	}
	if _, ok := methods[fasthttp.MethodOptions]; !ok {
		allowed = append(allowed, fasthttp.MethodOptions)
	}
	sort.Strings(allowed)
	return allowed
}
