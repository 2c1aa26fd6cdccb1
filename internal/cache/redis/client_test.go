package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataKey(t *testing.T) {
	k := MetadataKey("ecourts", "districts", "Delhi")

	assert.True(t, strings.HasPrefix(k, "meta:"))
	assert.Len(t, k, len("meta:")+32)
	assert.Equal(t, k, MetadataKey("ecourts", "districts", "Delhi"))
	assert.NotEqual(t, k, MetadataKey("delhi", "districts", "Delhi"))
	assert.NotEqual(t, MetadataKey("a", "bc"), MetadataKey("ab", "c"))
}

func TestNopAlwaysMisses(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.SetList(ctx, "meta:x", []string{"Delhi"}))
	values, ok, err := c.GetList(ctx, "meta:x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, values)
	assert.NoError(t, c.Close())
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient("127.0.0.1", 1, "", 0, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
