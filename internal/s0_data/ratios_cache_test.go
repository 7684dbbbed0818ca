package s0_data

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

type countingRatios struct {
	calls int
	err   error
}

func (s *countingRatios) FetchRatios(_ context.Context, symbol string) (*contracts.Ratios, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &contracts.Ratios{Symbol: symbol, PE: contracts.F(12.5)}, nil
}

func TestRatiosCache_DisabledPassesThrough(t *testing.T) {
	src := &countingRatios{}
	cache := NewRatiosCache(src, redis.NewCache(redis.Disabled(), "test"), logger.Nop())

	for i := 0; i < 2; i++ {
		r, err := cache.FetchRatios(context.Background(), "VNM")
		require.NoError(t, err)
		require.NotNil(t, r.PE)
		assert.Equal(t, 12.5, *r.PE)
	}
	// Redis 비활성: 매번 소스 호출
	assert.Equal(t, 2, src.calls)
}

func TestRatiosCache_SourceError(t *testing.T) {
	src := &countingRatios{err: errors.New("cafef down")}
	cache := NewRatiosCache(src, redis.NewCache(redis.Disabled(), "test"), logger.Nop())

	_, err := cache.FetchRatios(context.Background(), "VNM")
	assert.ErrorContains(t, err, "cafef down")
}
