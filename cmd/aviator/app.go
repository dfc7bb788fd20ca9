package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/zoobzio/aviator"
	"github.com/zoobzio/aviator/internal/config"
	"github.com/zoobzio/aviator/internal/server"
	"github.com/zoobzio/aviator/pkg/file"
	"github.com/zoobzio/aviator/pkg/httpfeed"
	aviatorprom "github.com/zoobzio/aviator/pkg/prometheus"
	"github.com/zoobzio/aviator/pkg/redis"
	"github.com/zoobzio/aviator/pkg/sqlite"
	"github.com/zoobzio/aviator/pkg/websocket"
)

// app owns everything serve starts, so it can be torn down in reverse.
type app struct {
	logger   *slog.Logger
	server   *server.Server
	sessions []*aviator.Session
	closers  []io.Closer
}

// newApp builds and starts one session per configured feed.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		logger: logger,
		server: server.New(logger),
	}
	if err := a.start(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) start(ctx context.Context, cfg config.Config) error {
	logger := a.logger

	var metrics aviator.MetricsProvider = aviator.NoOpMetricsProvider{}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := aviatorprom.New(reg, cfg.Metrics.Namespace)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		metrics = m
		a.server.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	var journal *sqlite.Journal
	if cfg.Journal.Path != "" {
		var err error
		journal, err = sqlite.New(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		a.closers = append(a.closers, journal)
		a.server.WithHistory(journal)
	}

	for _, sc := range cfg.Sessions {
		source, err := a.buildSource(ctx, sc.Feed)
		if err != nil {
			return fmt.Errorf("session %s: %w", sc.ID, err)
		}

		hub := websocket.NewHub(
			websocket.WithLogger(logger.With("session", sc.ID)),
			websocket.WithWriteWait(cfg.Scene.WriteWait),
			websocket.WithCheckOrigin(checkOrigin(cfg.Scene.AllowedOrigins)),
		)
		a.closers = append(a.closers, hub)

		session := aviator.New(source, hub).
			ID(sc.ID).
			PollInterval(sc.PollInterval).
			TransitionDuration(sc.TransitionDuration).
			FrameInterval(sc.FrameInterval).
			Protocol(sc.SessionProtocol()).
			FlagEncoding(sc.SessionFlagEncoding()).
			FlagPolicy(sc.SessionFlagPolicy()).
			ErrorHistorySize(sc.ErrorHistory).
			Logger(logger).
			Metrics(metrics)
		if journal != nil {
			session.Journal(journal)
		}
		if err := session.Start(ctx); err != nil {
			return fmt.Errorf("session %s: %w", sc.ID, err)
		}
		a.sessions = append(a.sessions, session)
		a.server.Add(session, hub)
	}
	return nil
}

func (a *app) buildSource(ctx context.Context, fc config.FeedConfig) (aviator.Source, error) {
	switch fc.Type {
	case config.FeedHTTP:
		header := http.Header{}
		for k, v := range fc.Headers {
			header.Set(k, v)
		}
		var client *http.Client
		if fc.Timeout > 0 {
			client = &http.Client{Timeout: fc.Timeout}
		}
		return httpfeed.New(httpfeed.Config{
			URL:        fc.URL,
			Token:      fc.Token,
			Header:     header,
			Legacy:     fc.Legacy,
			HTTPClient: client,
		}), nil

	case config.FeedRedis:
		client := goredis.NewClient(&goredis.Options{Addr: fc.Addr, DB: fc.DB})
		a.closers = append(a.closers, client)
		var opts []redis.Option
		if fc.Legacy {
			opts = append(opts, redis.WithLegacySchema())
		}
		return redis.New(client, fc.Key, opts...), nil

	case config.FeedFile:
		var opts []file.Option
		if fc.Legacy {
			opts = append(opts, file.WithLegacySchema())
		}
		src := file.New(fc.Path, opts...)
		if err := src.Watch(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, src)
		return src, nil
	}
	return nil, fmt.Errorf("unknown feed type %q", fc.Type)
}

// checkOrigin allows same-origin requests and the listed origins.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// Handler returns the HTTP routes.
func (a *app) Handler() http.Handler {
	return a.server.Routes()
}

// Sessions returns the running sessions.
func (a *app) Sessions() []*aviator.Session {
	return a.sessions
}

// Close stops every session, then releases hubs, sources and the journal.
func (a *app) Close() {
	for _, s := range a.sessions {
		s.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown released resources with errors", "error", err)
	}
}
