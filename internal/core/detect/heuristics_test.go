package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snjax/nook/internal/core/domain"
)

func TestProtocolForPort(t *testing.T) {
	tests := []struct {
		port uint16
		want string
		ok   bool
	}{
		{5432, "postgres", true},
		{5173, "http", true},
		{8443, "https", true},
		{6379, "redis", true},
		{12345, "", false},
	}
	for _, tt := range tests {
		got, ok := ProtocolForPort(tt.port, nil)
		assert.Equal(t, tt.ok, ok, "port %d", tt.port)
		assert.Equal(t, tt.want, got, "port %d", tt.port)
	}
}

func TestProtocolForPortOverride(t *testing.T) {
	got, ok := ProtocolForPort(5432, map[uint16]string{5432: "custom"})
	assert.True(t, ok)
	assert.Equal(t, "custom", got)
}

func TestProtocolForProcess(t *testing.T) {
	got, ok := ProtocolForProcess("/usr/local/bin/Node")
	assert.True(t, ok)
	assert.Equal(t, "http", got)

	got, ok = ProtocolForProcess("redis-server")
	assert.True(t, ok)
	assert.Equal(t, "redis", got)

	_, ok = ProtocolForProcess("weird-daemon")
	assert.False(t, ok)
	_, ok = ProtocolForProcess("")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	wk := Resolve(5432, "postgres", nil)
	assert.Equal(t, "postgres", wk.Protocol)
	assert.Equal(t, domain.DetectedWellKnown, wk.DetectionMethod)
	assert.Equal(t, domain.ConfidenceHigh, wk.Confidence)

	byProc := Resolve(4000, "node", nil)
	assert.Equal(t, "http", byProc.Protocol)
	assert.Equal(t, domain.DetectedProcessName, byProc.DetectionMethod)
	assert.Equal(t, domain.ConfidenceHigh, byProc.Confidence)

	redis := Resolve(4999, "/usr/bin/redis-server", nil)
	assert.Equal(t, "redis", redis.Protocol)
	assert.Equal(t, domain.DetectedProcessName, redis.DetectionMethod)
	assert.Equal(t, domain.ConfidenceHigh, redis.Confidence)

	unknown := Resolve(4998, "weird", nil)
	assert.Equal(t, UnknownProtocol, unknown.Protocol)
	assert.Equal(t, domain.DetectedUnknown, unknown.DetectionMethod)
	assert.Equal(t, domain.ConfidenceLow, unknown.Confidence)
}

func TestCacheMemoizes(t *testing.T) {
	overrides := map[uint16]string{4000: "grpc"}
	c := NewCache(overrides)
	first := c.Resolve(4000, "node")
	overrides[4000] = "changed"
	assert.Equal(t, first, c.Resolve(4000, "node"))
	assert.Equal(t, "grpc", first.Protocol)
}
