package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Ping(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Ping(context.Background()))
}

func TestHealthCheck_PingFailsWhenDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	s.Close()

	hc := NewHealthCheck(client)
	assert.Error(t, hc.Ping(context.Background()))
}
