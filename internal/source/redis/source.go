// Package redis implements an alternate hunter.RecordSource that pulls
// JSON-encoded records off a Redis list, for streaming ingestion
// scenarios where records arrive from a live queue instead of static
// EVTX files (spec §6 "Record source": "a pull iterator ... supplied by
// the external EVTX decoder" — this is a second, ambient collaborator
// of the same shape, feeding pre-decoded JSON instead).
//
// Grounded verbatim on internal/input/redis/consumer.go's
// Config/Consumer/Pop/Close shape (BLPOP against one list key), adapted
// to decode each popped payload into a *document.Record instead of
// passing the raw bytes upstream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"chainsaw/internal/document"
)

// Config configures the Redis-backed record source.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
}

// Source is a hunter.RecordSource that pops JSON records from a Redis
// list. Next blocks (via BLPOP) until a record arrives, the block
// timeout elapses, or ctx is cancelled.
type Source struct {
	client       *goredis.Client
	key          string
	blockTimeout time.Duration
}

// New creates a Redis-backed record source for list-based queues.
func New(cfg Config) (*Source, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("source/redis: key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Source{client: client, key: cfg.Key, blockTimeout: cfg.BlockTimeout}, nil
}

// Next pops and decodes the next record, blocking up to blockTimeout per
// attempt and retrying on timeout until ctx is done, at which point it
// returns io.EOF (spec §6 "next() -> Document | EndOfFile | Error").
func (s *Source) Next(ctx context.Context) (*document.Record, error) {
	for {
		if ctx.Err() != nil {
			return nil, io.EOF
		}

		res, err := s.client.BLPop(ctx, s.blockTimeout, s.key).Result()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("source/redis: blpop: %w", err)
		}
		if len(res) < 2 {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(res[1]), &raw); err != nil {
			return nil, fmt.Errorf("source/redis: decode payload: %w", err)
		}
		return document.NewRecordFromAny(raw), nil
	}
}

// Close releases the underlying Redis client.
func (s *Source) Close() error {
	return s.client.Close()
}
