package engine

import (
	"context"
	"encoding/json"
	"hurlfix/pkg/fixture"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const adminTimeout = 5 * time.Second

type fixtureView struct {
	Name        string            `json:"name"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Status      int               `json:"status"`
	ContentType string            `json:"contentType"`
	Headers     map[string]string `json:"headers,omitempty"`
	BodyHex     string            `json:"bodyHex"`
	BodySize    int               `json:"bodySize"`
	Delay       string            `json:"delay,omitempty"`
	Builtin     bool              `json:"builtin"`
	RateLimited bool              `json:"rateLimited"`
}

func newFixtureView(f fixture.Fixture) fixtureView {
	view := fixtureView{
		Name:        f.Name,
		Method:      f.Method,
		Path:        f.Path,
		Status:      f.Status,
		ContentType: f.ContentType,
		Headers:     f.Headers,
		BodyHex:     fixture.FormatHex(f.Body),
		BodySize:    len(f.Body),
		Builtin:     f.Builtin,
		RateLimited: f.RateLimit != nil && f.RateLimit.Enabled,
	}
	if f.Delay > 0 {
		view.Delay = f.Delay.String()
	}
	return view
}

func (engine *HurlfixEngine) handleAdmin(ctx *fasthttp.RequestCtx) {
	route := strings.TrimPrefix(string(ctx.Path()), engine.config.Admin.Prefix)

	switch route {
	case "/health":
		if !ctx.IsGet() && !ctx.IsHead() {
			methodNotAllowed(ctx, "GET, HEAD")
			return
		}
		ctx.SetContentType(fixture.ContentTypeText)
		ctx.SetBodyString("OK")

	case "/fixtures":
		if !ctx.IsGet() {
			methodNotAllowed(ctx, "GET")
			return
		}
		list := engine.registry.List()
		views := make([]fixtureView, 0, len(list))
		for _, f := range list {
			views = append(views, newFixtureView(f))
		}
		engine.writeJSON(ctx, fasthttp.StatusOK, views)

	case "/journal":
		engine.handleJournal(ctx)

	case "/ratelimit":
		engine.handleRateLimitReset(ctx)

	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

func (engine *HurlfixEngine) handleJournal(ctx *fasthttp.RequestCtx) {
	if engine.journal == nil {
		ctx.Error("journal disabled", fasthttp.StatusNotFound)
		return
	}

	jctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	switch {
	case ctx.IsGet():
		limit := ctx.QueryArgs().GetUintOrZero("limit")
		entries, err := engine.journal.Recent(jctx, limit)
		if err != nil {
			engine.logger.Error().Err(err).Msg("failed to read the journal")
			ctx.Error("failed to read the journal", fasthttp.StatusInternalServerError)
			return
		}
		engine.writeJSON(ctx, fasthttp.StatusOK, entries)

	case ctx.IsDelete():
		if err := engine.journal.Clear(jctx); err != nil {
			engine.logger.Error().Err(err).Msg("failed to clear the journal")
			ctx.Error("failed to clear the journal", fasthttp.StatusInternalServerError)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)

	default:
		methodNotAllowed(ctx, "GET, DELETE")
	}
}

// handleRateLimitReset clears one limiter key. Keys are the ones the limiter
// builds: the keyBy parts joined by ':', prefixed with the fixture name for
// per-fixture limits.
func (engine *HurlfixEngine) handleRateLimitReset(ctx *fasthttp.RequestCtx) {
	if engine.rateLimitManager == nil {
		ctx.Error("rate limiting disabled", fasthttp.StatusNotFound)
		return
	}
	if !ctx.IsDelete() {
		methodNotAllowed(ctx, "DELETE")
		return
	}

	key := string(ctx.QueryArgs().Peek("key"))
	if key == "" {
		ctx.Error("missing key parameter", fasthttp.StatusBadRequest)
		return
	}

	engine.rateLimitManager.Reset(key)
	engine.logger.Info().Str("key", key).Msg("rate limit key reset")
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (engine *HurlfixEngine) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		engine.logger.Error().Err(err).Msg("failed to encode admin response")
		ctx.Error("failed to encode response", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}

// methodNotAllowed sets Allow after ctx.Error, which resets the response.
func methodNotAllowed(ctx *fasthttp.RequestCtx, allow string) {
	ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
	ctx.Response.Header.Set("Allow", allow)
}
