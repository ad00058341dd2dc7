// Package fixture holds the canned responses served by hurlfix.
package fixture

import (
	"hurlfix/pkg/models"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypeText        = "text/plain; charset=utf-8"
)

// ErrorAssertByteArrayPath serves a single 0xFF byte so a client can check
// how it reports a failed byte-array assertion.
const ErrorAssertByteArrayPath = "/error-assert-bytearray"

type Fixture struct {
	Name        string
	Method      string
	Path        string
	Status      int
	ContentType string
	Headers     map[string]string
	Body        []byte
	Delay       time.Duration
	Builtin     bool
	RateLimit   *models.RateLimitConfig
}

// Builtins returns a fresh copy of the built-in catalog.
func Builtins() []Fixture {
	return []Fixture{
		{
			Name:        "error-assert-bytearray",
			Method:      fasthttp.MethodGet,
			Path:        ErrorAssertByteArrayPath,
			Status:      fasthttp.StatusOK,
			ContentType: ContentTypeOctetStream,
			Body:        []byte{0xff},
			Builtin:     true,
		},
	}
}

// Serve writes the fixture response. HEAD gets the headers of the GET
// response without a body.
func (f *Fixture) Serve(ctx *fasthttp.RequestCtx) {
	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			ctx.Error("server shutting down", fasthttp.StatusServiceUnavailable)
			return
		}
	}

	ctx.SetStatusCode(f.Status)
	ctx.SetContentType(f.ContentType)
	for name, value := range f.Headers {
		ctx.Response.Header.Set(name, value)
	}
	ctx.SetBody(f.Body)

	if ctx.IsHead() {
		ctx.Response.SkipBody = true
	}
}

func (f *Fixture) key() string {
	return f.Method + " " + f.Path
}
