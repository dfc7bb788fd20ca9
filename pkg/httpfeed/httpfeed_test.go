package httpfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/aviator"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSource_Fetch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"multiplier": 2.5, "running": true}`)

	reading, err := New(Config{URL: srv.URL}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, aviator.Reading{Target: 2.5, Flag: true}, reading)
}

func TestSource_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"multiplier": 1, "running": false}`))
	}))
	defer srv.Close()

	src := New(Config{
		URL:    srv.URL,
		Token:  "secret",
		Header: http.Header{"X-Table": []string{"7"}},
	})
	_, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "7", got.Get("X-Table"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestSource_NonSuccessStatus(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, `maintenance`)

	_, err := New(Config{URL: srv.URL}).Fetch(context.Background())

	var fe *aviator.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "http", fe.Source)
	assert.Equal(t, aviator.StageStatus, fe.Stage)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "maintenance", se.Body)
}

func TestSource_MalformedBody(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html>oops</html>`)

	_, err := New(Config{URL: srv.URL}).Fetch(context.Background())

	var fe *aviator.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, aviator.StageDecode, fe.Stage)
}

func TestSource_InvalidTarget(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"multiplier": "lots", "running": true}`)

	_, err := New(Config{URL: srv.URL}).Fetch(context.Background())
	assert.ErrorIs(t, err, aviator.ErrInvalidTarget)
}

func TestSource_MissingFlag(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"multiplier": 1.2}`)

	_, err := New(Config{URL: srv.URL}).Fetch(context.Background())
	assert.ErrorIs(t, err, aviator.ErrMissingFlag)
}

func TestSource_LegacySchema(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"id": 1, "uid": "x", "random_number": 3.75}`)

	reading, err := New(Config{URL: srv.URL, Legacy: true}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.75, reading.Target)
	assert.False(t, reading.Flag)
}

func TestSource_Unreachable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	_, err := New(Config{URL: url}).Fetch(context.Background())

	var fe *aviator.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, aviator.StageRequest, fe.Stage)
}

func TestSource_HonorsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(Config{URL: srv.URL}).Fetch(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "ok", n: 5, want: "ok"},
		{name: "ascii", in: "abcdef", n: 3, want: "abc..."},
		{name: "cut inside rune", in: "ab€cd", n: 3, want: "ab..."},
		{name: "cut after rune", in: "ab€cd", n: 5, want: "ab€..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
