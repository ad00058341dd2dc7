package fixture

import (
	"fmt"
	"hurlfix/pkg/models"
	"strings"

	"github.com/valyala/fasthttp"
)

// Build turns configured fixtures into a catalog. Built-ins come first; a
// configured fixture with the same method and path replaces the built-in.
func Build(configs []models.FixtureConfig, includeBuiltins bool, baseDir string) ([]Fixture, error) {
	var catalog []Fixture
	positions := make(map[string]int)

	if includeBuiltins {
		for _, f := range Builtins() {
			positions[f.key()] = len(catalog)
			catalog = append(catalog, f)
		}
	}

	for i := range configs {
		f, err := fromConfig(&configs[i], baseDir)
		if err != nil {
			return nil, fmt.Errorf("fixture #%d (%s): %w", i, configs[i].Path, err)
		}

		pos, exists := positions[f.key()]
		switch {
		case !exists:
			positions[f.key()] = len(catalog)
			catalog = append(catalog, f)
		case catalog[pos].Builtin:
			catalog[pos] = f
		default:
			return nil, fmt.Errorf("duplicate fixture for %s", f.key())
		}
	}

	return catalog, nil
}

func fromConfig(cfg *models.FixtureConfig, baseDir string) (Fixture, error) {
	if !strings.HasPrefix(cfg.Path, "/") {
		return Fixture{}, fmt.Errorf("path %q must start with '/'", cfg.Path)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = fasthttp.MethodGet
	}

	status := cfg.Status
	if status == 0 {
		status = fasthttp.StatusOK
	}
	if status < 100 || status > 599 {
		return Fixture{}, fmt.Errorf("invalid status code %d", status)
	}

	body, err := ParseBody(cfg.Body, baseDir)
	if err != nil {
		return Fixture{}, err
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = body.DefaultContentType()
	}

	name := cfg.Name
	if name == "" {
		name = method + " " + cfg.Path
	}

	var headers map[string]string
	if len(cfg.Headers) > 0 {
		headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[k] = v
		}
	}

	return Fixture{
		Name:        name,
		Method:      method,
		Path:        cfg.Path,
		Status:      status,
		ContentType: contentType,
		Headers:     headers,
		Body:        body.Data,
		Delay:       cfg.Delay,
		RateLimit:   cfg.RateLimit,
	}, nil
}
