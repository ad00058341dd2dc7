package fixture

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newCtx(method, uri string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	return ctx
}

func errorAssertByteArray(t *testing.T) *Fixture {
	t.Helper()
	for _, f := range Builtins() {
		if f.Path == ErrorAssertByteArrayPath {
			return &f
		}
	}
	t.Fatal("error-assert-bytearray fixture missing from builtins")
	return nil
}

func TestErrorAssertByteArray_Response(t *testing.T) {
	f := errorAssertByteArray(t)
	ctx := newCtx(fasthttp.MethodGet, ErrorAssertByteArrayPath)

	f.Serve(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "application/octet-stream", string(ctx.Response.Header.ContentType()))
	assert.Equal(t, []byte{0xff}, ctx.Response.Body())
	assert.Len(t, ctx.Response.Body(), 1)
}

func TestErrorAssertByteArray_Idempotent(t *testing.T) {
	f := errorAssertByteArray(t)

	var wg sync.WaitGroup
	bodies := make([][]byte, 32)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := newCtx(fasthttp.MethodGet, ErrorAssertByteArrayPath)
			f.Serve(ctx)
			bodies[i] = append([]byte(nil), ctx.Response.Body()...)
		}(i)
	}
	wg.Wait()

	for i, body := range bodies {
		assert.Truef(t, bytes.Equal(body, []byte{0xff}), "call %d returned %x", i, body)
	}
}

func TestBuiltins_ReturnsCopies(t *testing.T) {
	first := Builtins()
	first[0].Body[0] = 0x00
	first[0].Status = 500

	second := Builtins()
	assert.Equal(t, []byte{0xff}, second[0].Body)
	assert.Equal(t, fasthttp.StatusOK, second[0].Status)
}

func TestServe_Head(t *testing.T) {
	f := errorAssertByteArray(t)
	ctx := newCtx(fasthttp.MethodHead, ErrorAssertByteArrayPath)

	f.Serve(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "application/octet-stream", string(ctx.Response.Header.ContentType()))
	assert.True(t, ctx.Response.SkipBody)
}

func TestServe_CustomHeadersAndStatus(t *testing.T) {
	f := &Fixture{
		Name:        "teapot",
		Method:      fasthttp.MethodGet,
		Path:        "/teapot",
		Status:      fasthttp.StatusTeapot,
		ContentType: ContentTypeText,
		Headers:     map[string]string{"X-Fixture": "teapot"},
		Body:        []byte("short and stout"),
	}
	ctx := newCtx(fasthttp.MethodGet, "/teapot")

	f.Serve(ctx)

	require.Equal(t, fasthttp.StatusTeapot, ctx.Response.StatusCode())
	assert.Equal(t, "teapot", string(ctx.Response.Header.Peek("X-Fixture")))
	assert.Equal(t, "short and stout", string(ctx.Response.Body()))
}
