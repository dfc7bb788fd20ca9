// Package httpfeed provides an aviator.Source that polls an HTTP endpoint.
package httpfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/zoobzio/aviator"
)

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config holds the settings for a feed Source.
type Config struct {
	// URL is the feed endpoint. Required.
	URL string

	// Token, if set, is sent as a bearer token.
	Token string

	// Header is added to every request.
	Header http.Header

	// Legacy reads the early {"random_number": n} payload.
	Legacy bool

	// Codec decodes the response body. Defaults to JSON.
	Codec aviator.Codec

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// Defaults to a client with a 5s timeout.
	HTTPClient *http.Client
}

// Source performs one GET per Fetch.
type Source struct {
	config Config
	http   *http.Client
}

// New creates a Source from cfg.
func New(cfg Config) *Source {
	if cfg.Codec == nil {
		cfg.Codec = aviator.JSONCodec{}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Source{config: cfg, http: httpClient}
}

// Fetch requests the feed and parses the response.
func (s *Source) Fetch(ctx context.Context) (aviator.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return aviator.Reading{}, aviator.Fail("http", aviator.StageRequest, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", s.config.Codec.ContentType())
	for k, vs := range s.config.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return aviator.Reading{}, aviator.Fail("http", aviator.StageRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return aviator.Reading{}, aviator.Fail("http", aviator.StageRequest, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return aviator.Reading{}, aviator.Fail("http", aviator.StageStatus,
			&StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)})
	}

	var reading aviator.Reading
	if s.config.Legacy {
		reading, err = aviator.ParseLegacyReading(s.config.Codec, body)
	} else {
		reading, err = aviator.ParseReading(s.config.Codec, body)
	}
	if err != nil {
		return aviator.Reading{}, aviator.Fail("http", aviator.StageDecode, err)
	}
	return reading, nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Ensure Source implements aviator.Source.
var _ aviator.Source = (*Source)(nil)
