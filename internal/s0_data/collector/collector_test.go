package collector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/vnquant/pkg/logger"
)

type fakeUpdater struct {
	mu     sync.Mutex
	forced []string
}

func (f *fakeUpdater) Update(_ context.Context, symbol string, force bool) (int, error) {
	if symbol == "BAD" {
		return 0, errors.New("provider down")
	}
	if force {
		f.mu.Lock()
		f.forced = append(f.forced, symbol)
		f.mu.Unlock()
	}
	return len(symbol), nil
}

func TestCollector_UpdateAll(t *testing.T) {
	updater := &fakeUpdater{}
	c := NewCollector(updater, logger.Nop())

	var mu sync.Mutex
	var seen []int
	progress := func(done, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		seen = append(seen, done)
	}

	summary := c.UpdateAll(context.Background(), []string{"VNM", "FPT", "BAD", "MWG"}, Config{Workers: 3, Force: true}, progress)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 9, summary.Bars)
	assert.Len(t, summary.Results, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
	assert.ElementsMatch(t, []string{"VNM", "FPT", "MWG"}, updater.forced)
}

func TestCollector_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := NewCollector(&fakeUpdater{}, logger.Nop()).
		UpdateAll(ctx, []string{"VNM", "FPT"}, Config{}, nil)

	assert.Equal(t, 2, summary.Failed)
	for _, r := range summary.Results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}
