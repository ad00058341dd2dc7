// Package probe issues a single request against a running server and checks
// the response the way an HTTP assertion runner would.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"hurlfix/pkg/fixture"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const defaultTimeout = 5 * time.Second

type Expectation struct {
	Status      int
	ContentType string
	// Body is compared byte for byte when set.
	Body *fixture.Body
}

type Failure struct {
	Assert   string
	Actual   string
	Expected string
}

func (f Failure) String() string {
	return fmt.Sprintf("assert %s failed\n  actual:   %s\n  expected: %s", f.Assert, f.Actual, f.Expected)
}

type Report struct {
	Method      string
	URL         string
	Status      int
	ContentType string
	Body        []byte
	Elapsed     time.Duration
	Failures    []Failure
}

func (r *Report) Passed() bool {
	return len(r.Failures) == 0
}

type Prober struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewProber returns a prober using client, or a default client when nil.
func NewProber(client *fasthttp.Client, timeout time.Duration) *Prober {
	if client == nil {
		client = &fasthttp.Client{Name: "hurlfix-check"}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Prober{client: client, timeout: timeout}
}

// Check sends one request and evaluates exp against the response. Transport
// errors are returned; assertion failures are reported in the Report.
func (p *Prober) Check(ctx context.Context, method, url string, exp Expectation) (*Report, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	if method == "" {
		method = fasthttp.MethodGet
	}
	req.Header.SetMethod(strings.ToUpper(method))
	req.SetRequestURI(url)

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, url, err)
	}

	report := &Report{
		Method:      string(req.Header.Method()),
		URL:         url,
		Status:      resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), resp.Body()...),
		Elapsed:     time.Since(start),
	}
	report.Failures = evaluate(report, exp)
	return report, nil
}

func evaluate(report *Report, exp Expectation) []Failure {
	var failures []Failure

	if exp.Status != 0 && report.Status != exp.Status {
		failures = append(failures, Failure{
			Assert:   "status",
			Actual:   strconv.Itoa(report.Status),
			Expected: strconv.Itoa(exp.Status),
		})
	}

	if exp.ContentType != "" && report.ContentType != exp.ContentType {
		failures = append(failures, Failure{
			Assert:   "header Content-Type",
			Actual:   strconv.Quote(report.ContentType),
			Expected: strconv.Quote(exp.ContentType),
		})
	}

	if exp.Body != nil && !bytes.Equal(report.Body, exp.Body.Data) {
		failures = append(failures, Failure{
			Assert:   "body",
			Actual:   formatBytes(report.Body),
			Expected: formatBytes(exp.Body.Data),
		})
	}

	return failures
}

func formatBytes(data []byte) string {
	return "hex <" + fixture.FormatHex(data) + ">"
}
