// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distribute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/pdiddy/docsync/pkg/types"
)

// Compile-time check: RedisSink implements Sink.
var _ Sink = (*RedisSink)(nil)

// RedisSink appends each record of a batch to a Redis stream with XADD.
// The stream name is the destination known to the downstream consumer.
// No dedup key is attached: delivery is at-least-once, and consumers
// needing exactly-once must dedup on key plus generation at their end.
type RedisSink struct {
	client rueidis.Client
	stream string
}

// NewRedisSink connects to the configured Redis/Valkey addresses.
func NewRedisSink(cfg types.SinkConfig) (*RedisSink, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("sink: addrs is required")
	}
	if cfg.Stream == "" {
		return nil, fmt.Errorf("sink: stream is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: creating client: %w", err)
	}
	return &RedisSink{client: client, stream: cfg.Stream}, nil
}

// Deliver appends the batch to the stream, one entry per record, and
// fails on the first rejected entry.
func (s *RedisSink) Deliver(ctx context.Context, batch []types.Record) error {
	cmds := make(rueidis.Commands, 0, len(batch))
	for _, rec := range batch {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %q: %w", rec.Key, err)
		}
		cmds = append(cmds, s.client.B().Xadd().
			Key(s.stream).
			Id("*").
			FieldValue().
			FieldValue("key", rec.Key).
			FieldValue("record", string(payload)).
			Build())
	}
	for i, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("xadd %s record %q: %w", s.stream, batch[i].Key, err)
		}
	}
	return nil
}

// Close shuts down the client.
func (s *RedisSink) Close() {
	s.client.Close()
}
