package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyScopesByProjectAndUser(t *testing.T) {
	assert.Equal(t, "comms:idem:msg:p1:u1:c1", Key("p1", "u1", "c1"))
	assert.NotEqual(t, Key("p1", "u1", "c1"), Key("p2", "u1", "c1"))
}

func TestNewRedisGuardDefaultsTTL(t *testing.T) {
	guard := NewRedisGuard(NewRedisClient("localhost:0"), 0)
	assert.Equal(t, DefaultTTL, guard.ttl)

	guard = NewRedisGuard(NewRedisClient("localhost:0"), time.Hour)
	assert.Equal(t, time.Hour, guard.ttl)
}
