// Package liveness determines, per bookmark, reachability, redirect
// target, response latency and TLS validity.
package liveness

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Typed probe failures. The checker treats ErrTimeout as transient (one
// retry); ErrConnection and ErrTLS are conclusive.
var (
	ErrTimeout    = errors.New("probe timeout")
	ErrConnection = errors.New("connection failed")
	ErrTLS        = errors.New("tls handshake failed")
)

// Result is the outcome of a successful probe round trip.
type Result struct {
	FinalURL    string
	StatusChain []int // redirect hop statuses followed by the final status
	Elapsed     time.Duration
	TLSValid    bool
}

// Prober is the HTTP collaborator boundary. Tests inject fakes.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (Result, error)
}

// HTTPProber probes URLs with a plain GET, following redirects and
// recording each hop's status.
type HTTPProber struct {
	transport http.RoundTripper
	timeout   time.Duration
	userAgent string
}

// NewHTTPProber builds a prober with a shared transport.
func NewHTTPProber(timeout time.Duration, userAgent string) *HTTPProber {
	return &HTTPProber{
		transport: http.DefaultTransport,
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Probe issues the request and classifies transport failures into the
// typed errors above. The response body is discarded; only the status
// chain matters here.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) (Result, error) {
	var chain []int

	// The redirect hook captures hop statuses, so the client is built per
	// probe; the transport and its connection pool are shared.
	client := &http.Client{
		Transport: p.transport,
		Timeout:   p.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.Response != nil {
				chain = append(chain, req.Response.StatusCode)
			}
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Elapsed: elapsed}, classify(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	chain = append(chain, resp.StatusCode)
	return Result{
		FinalURL:    resp.Request.URL.String(),
		StatusChain: chain,
		Elapsed:     elapsed,
		TLSValid:    resp.TLS != nil,
	}, nil
}

func classify(err error) error {
	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	switch {
	case errors.As(err, &certErr), errors.As(err, &recordErr),
		errors.As(err, &unknownAuth), errors.As(err, &hostErr):
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
