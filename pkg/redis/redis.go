// Package redis provides an aviator.Source that reads the feed payload
// from a Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/aviator"
)

// Source reads a Redis key holding the feed payload, one GET per Fetch.
// The producer is expected to overwrite the key in place:
//
//	SET aviator:feed '{"multiplier": 2.35, "running": true}'
type Source struct {
	client *redis.Client
	key    string
	codec  aviator.Codec
	legacy bool
}

// Option configures a Source.
type Option func(*Source)

// WithCodec sets the codec used to decode the stored value. Default: JSON.
func WithCodec(codec aviator.Codec) Option {
	return func(s *Source) {
		s.codec = codec
	}
}

// WithLegacySchema reads the early {"random_number": n} payload.
func WithLegacySchema() Option {
	return func(s *Source) {
		s.legacy = true
	}
}

// New creates a new Source for the given Redis key.
func New(client *redis.Client, key string, opts ...Option) *Source {
	s := &Source{
		client: client,
		key:    key,
		codec:  aviator.JSONCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch reads and parses the current value of the key. A missing key is
// reported as aviator.ErrNoReading.
func (s *Source) Fetch(ctx context.Context) (aviator.Reading, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return aviator.Reading{}, aviator.Fail("redis", aviator.StageRequest,
			fmt.Errorf("key %q: %w", s.key, aviator.ErrNoReading))
	}
	if err != nil {
		return aviator.Reading{}, aviator.Fail("redis", aviator.StageRequest, err)
	}

	var reading aviator.Reading
	if s.legacy {
		reading, err = aviator.ParseLegacyReading(s.codec, raw)
	} else {
		reading, err = aviator.ParseReading(s.codec, raw)
	}
	if err != nil {
		return aviator.Reading{}, aviator.Fail("redis", aviator.StageDecode, err)
	}
	return reading, nil
}

// Ensure Source implements aviator.Source.
var _ aviator.Source = (*Source)(nil)
