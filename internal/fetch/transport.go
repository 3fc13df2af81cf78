package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// maxBodyBytes caps how much of a response is buffered per request
const maxBodyBytes = 16 << 20

// Transport routes every HTTP request through the source bound to the
// request context. Responses are fully buffered inside the attempt so the
// per-request timeout also covers reading the body.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

// NewHTTPClient returns a client whose requests obey the coordinator rules
func NewHTTPClient(userAgent string) *http.Client {
	return &http.Client{
		Transport: &Transport{Base: http.DefaultTransport, UserAgent: userAgent},
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var out *http.Response
	err := Do(req.Context(), func(ctx context.Context) error {
		r := req.Clone(ctx)
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("rewind request body: %w", err)
			}
			r.Body = body
		}
		if t.UserAgent != "" && r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}

		resp, err := base.RoundTrip(r)
		if err != nil {
			return classifyTransportError(req.URL.Host, err)
		}

		buf, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if err != nil {
			return &domain.FetchError{Source: req.URL.Host, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return &domain.FetchError{
				Source:     req.URL.Host,
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Err:        fmt.Errorf("%s", http.StatusText(resp.StatusCode)),
			}
		}

		resp.Body = io.NopCloser(bytes.NewReader(buf))
		resp.ContentLength = int64(len(buf))
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func classifyTransportError(host string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, host, err)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return &domain.FetchError{Source: host, Err: err}
	}
	return err
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if ts, err := http.ParseTime(v); err == nil {
		if d := time.Until(ts); d > 0 {
			return d
		}
	}
	return 0
}
