// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distribute

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/docsync/pkg/types"
)

func TestNewRedisSinkRequiresAddrs(t *testing.T) {
	_, err := NewRedisSink(types.SinkConfig{Stream: "records"})
	assert.ErrorContains(t, err, "addrs")
}

func TestNewRedisSinkRequiresStream(t *testing.T) {
	_, err := NewRedisSink(types.SinkConfig{Addrs: []string{"localhost:6379"}})
	assert.ErrorContains(t, err, "stream")
}
