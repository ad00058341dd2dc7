package engine

import (
	"context"
	"errors"
	"fmt"
	"hurlfix/pkg/fixture"
	"hurlfix/pkg/journal"
	"hurlfix/pkg/metrics"
	"hurlfix/pkg/ratelimitmanager"
	"hurlfix/pkg/utils/fs"
	"hurlfix/pkg/utils/system"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

const (
	userValueRequestID = "hurlfix.requestID"
	userValueMatch     = "hurlfix.match"

	shutdownTimeout = 10 * time.Second
	journalTimeout  = 2 * time.Second
)

type routeMatch struct {
	fixture *fixture.Fixture
	allowed []string
	result  fixture.MatchResult
}

func (m *routeMatch) fixtureName() string {
	if m == nil || m.fixture == nil {
		return ""
	}
	return m.fixture.Name
}

func matchFrom(ctx *fasthttp.RequestCtx) *routeMatch {
	m, _ := ctx.UserValue(userValueMatch).(*routeMatch)
	return m
}

// Handler returns the full request pipeline. Metrics and admin requests are
// answered directly; everything else goes through matching, journaling and
// rate limiting before a fixture is served.
func (engine *HurlfixEngine) Handler() fasthttp.RequestHandler {
	fixtures := engine.requestIDMiddleware(
		engine.matchMiddleware(
			engine.recordMiddleware(
				engine.rateLimitMiddleware(engine.serveFixture))))
	metricsHandler := metrics.Handler()

	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())

		if engine.config.Metrics.IsEnabled() && path == engine.config.Metrics.Path {
			metricsHandler(ctx)
			return
		}
		if engine.config.Admin.IsEnabled() && strings.HasPrefix(path, engine.config.Admin.Prefix+"/") {
			engine.handleAdmin(ctx)
			return
		}

		fixtures(ctx)
	}
}

func (engine *HurlfixEngine) requestIDMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.Request.Header.Peek("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetUserValue(userValueRequestID, id)

		next(ctx)

		ctx.Response.Header.Set("X-Request-Id", id)
	}
}

func (engine *HurlfixEngine) matchMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		f, allowed, result := engine.registry.Match(string(ctx.Method()), string(ctx.Path()))
		ctx.SetUserValue(userValueMatch, &routeMatch{fixture: f, allowed: allowed, result: result})
		next(ctx)
	}
}

func (engine *HurlfixEngine) recordMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		elapsed := time.Since(start)

		name := matchFrom(ctx).fixtureName()
		method := string(ctx.Method())
		path := string(ctx.Path())
		status := ctx.Response.StatusCode()
		size := len(ctx.Response.Body())
		if ctx.Response.SkipBody || ctx.IsHead() {
			size = 0
		}

		metrics.ObserveRequest(name, method, status, size, elapsed)

		engine.logger.Info().
			Str("method", method).
			Str("path", path).
			Str("fixture", name).
			Int("status", status).
			Int("size", size).
			Dur("elapsed", elapsed).
			Msg("request served")

		if engine.journal == nil {
			return
		}

		id, _ := ctx.UserValue(userValueRequestID).(string)
		entry := journal.Entry{
			ID:           id,
			Time:         start,
			Method:       method,
			Path:         path,
			Query:        string(ctx.QueryArgs().QueryString()),
			RemoteIP:     ratelimitmanager.GetClientIP(ctx),
			Fixture:      name,
			Status:       status,
			ResponseSize: size,
			RequestBody:  journal.Truncate(ctx.PostBody(), engine.config.Journal.MaxBodySize),
			Duration:     elapsed,
		}

		jctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := engine.journal.Record(jctx, entry); err != nil {
			metrics.JournalErrorsTotal.Inc()
			engine.logger.Warn().Err(err).Str("path", path).Msg("failed to journal request")
		}
	}
}

func (engine *HurlfixEngine) rateLimitMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if engine.rateLimitManager == nil {
			next(ctx)
			return
		}

		if engine.rateLimitExclude != nil && engine.rateLimitExclude.MatchString(string(ctx.Path())) {
			next(ctx)
			return
		}

		m := matchFrom(ctx)
		config := engine.config.RateLimit
		scope := ""
		if m != nil && m.fixture != nil && m.fixture.RateLimit != nil {
			config = engine.rateLimitManager.Resolve(engine.config.RateLimit, m.fixture.RateLimit)
			scope = m.fixture.Name
		}

		result := engine.rateLimitManager.Check(ctx, config, scope)
		if !result.Allowed {
			metrics.ObserveRateLimited(m.fixtureName())
			engine.rateLimitManager.Reject(ctx, result, config)
			return
		}

		next(ctx)
		engine.rateLimitManager.SetHeaders(ctx, result, config)
	}
}

func (engine *HurlfixEngine) serveFixture(ctx *fasthttp.RequestCtx) {
	m := matchFrom(ctx)
	if m == nil {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}

	switch m.result {
	case fixture.Matched:
		m.fixture.Serve(ctx)
	case fixture.Options:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.Response.Header.Set("Allow", strings.Join(m.allowed, ", "))
	case fixture.MethodNotAllowed:
		methodNotAllowed(ctx, strings.Join(m.allowed, ", "))
	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

func (engine *HurlfixEngine) newServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      engine.Handler(),
		Name:         engine.config.Server.Name,
		ReadTimeout:  engine.config.Server.ReadTimeout,
		WriteTimeout: engine.config.Server.WriteTimeout,
		Logger:       engine.logger.WithComponent("fasthttp"),
	}
}

// Serve answers requests on ln until ctx is done, then shuts down gracefully.
func (engine *HurlfixEngine) Serve(ctx context.Context, ln net.Listener) error {
	server := engine.newServer()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	engine.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

// Run listens on the configured address until SIGINT/SIGTERM or ctx is done.
func (engine *HurlfixEngine) Run(ctx context.Context) error {
	defer engine.cleanup()

	addr := system.ListenAddr(engine.config.Server.Host, engine.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	engine.pid = os.Getpid()
	if err := engine.storePid(); err != nil {
		ln.Close()
		return err
	}
	defer engine.removePid()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.logger.Info().Str("addr", addr).Int("pid", engine.pid).Msg("hurlfix engine starting")

	g, gctx := errgroup.WithContext(ctx)
	if engine.config.Server.Watch && engine.configPath != "" {
		g.Go(func() error {
			return engine.watchConfig(gctx)
		})
	}
	g.Go(func() error {
		return engine.Serve(gctx, ln)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		engine.logger.Error().Err(err).Msg("fatal server error")
		return err
	}
	return nil
}

func (engine *HurlfixEngine) pidPath() (string, error) {
	storageDir, err := ResolveStorageDir(engine.config, engine.configPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "hurlfix.pid"), nil
}

func (engine *HurlfixEngine) storePid() error {
	path, err := engine.pidPath()
	if err != nil {
		return err
	}

	if err := fs.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("unable to create program storage path: %w", err)
	}

	if err := fs.WriteFileAtomic(path, []byte(strconv.Itoa(engine.pid)), 0o644); err != nil {
		return fmt.Errorf("unable to store program id: %w", err)
	}

	engine.logger.Info().Str("path", path).Msg("stored program id")
	return nil
}

func (engine *HurlfixEngine) removePid() {
	path, err := engine.pidPath()
	if err != nil {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		engine.logger.Error().Err(err).Msg("failed to remove pid file")
	}
}

// cleanup releases the journal, limiter and log file. Safe on a partially
// constructed engine.
func (engine *HurlfixEngine) cleanup() {
	if engine.rateLimitManager != nil {
		if err := engine.rateLimitManager.Close(); err != nil {
			engine.logger.Error().Err(err).Msg("failed to close rate limit manager")
		}
	}

	if engine.journal != nil {
		if err := engine.journal.Close(); err != nil {
			engine.logger.Error().Err(err).Msg("failed to close the journal")
		}
	}

	engine.logger.Info().Msg("hurlfix engine stopped")
	_ = engine.logger.Close()
}

// Close releases engine resources when it was used through Handler or Serve
// instead of Run.
func (engine *HurlfixEngine) Close() {
	engine.cleanup()
}
