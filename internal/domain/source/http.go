package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// Doer is the subset of *http.Client adapters use
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DecodeRecords unmarshals each raw record on its own. A record that does not
// fit T is skipped and counted rather than failing the whole response.
func DecodeRecords[T any](ctx context.Context, raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			Skip(ctx, "malformed record")
			continue
		}
		out = append(out, rec)
	}
	return out
}

// GetJSON issues a GET and decodes a JSON body into out
func GetJSON(ctx context.Context, client Doer, source, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	return doJSON(client, source, req, out)
}

// PostJSON sends body as JSON and decodes the JSON response into out
func PostJSON(ctx context.Context, client Doer, source, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", source, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return doJSON(client, source, req, out)
}

func doJSON(client Doer, source string, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := CheckStatus(source, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ParseError{Source: source, Detail: "decode JSON response from " + req.URL.Path, Err: err}
	}
	return nil
}

// GetHTML fetches a page and parses it
func GetHTML(ctx context.Context, client Doer, source, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := CheckStatus(source, resp); err != nil {
		return nil, err
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &domain.ParseError{Source: source, Detail: "parse HTML " + url, Err: err}
	}
	return doc, nil
}

// CheckStatus maps an HTTP status onto the error taxonomy
func CheckStatus(source string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return &domain.FetchError{Source: source, StatusCode: code, Err: fmt.Errorf("%s", http.StatusText(code))}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", domain.ErrSourceUnavailable, source, code, strings.TrimSpace(string(body)))
	}
}
