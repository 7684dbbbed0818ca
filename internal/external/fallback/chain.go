// Package fallback combines market data sources into prioritized chains.
// Sources are tried in order; an error or an empty answer moves on to the next one.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

// Named pairs a source with the name used in logs
type Named[T any] struct {
	Name   string
	Source T
}

// SeriesChain tries price sources in order
// ⭐ SSOT: VCI → Yahoo → Demo 우선순위 적용
type SeriesChain struct {
	sources []Named[contracts.SeriesFetcher]
	logger  *logger.Logger
}

// NewSeriesChain creates a chain over the given sources
func NewSeriesChain(log *logger.Logger, sources ...Named[contracts.SeriesFetcher]) *SeriesChain {
	return &SeriesChain{sources: sources, logger: log.Module("fallback")}
}

// FetchSeries returns the first non-empty series
func (c *SeriesChain) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	return first(ctx, c.logger, symbol, c.sources,
		func(s contracts.SeriesFetcher) (*contracts.PriceSeries, error) {
			return s.FetchSeries(ctx, symbol, from, to)
		},
		func(ps *contracts.PriceSeries) bool { return ps.Len() == 0 },
	)
}

// RatiosChain tries fundamental sources in order
type RatiosChain struct {
	sources []Named[contracts.RatiosFetcher]
	logger  *logger.Logger
}

// NewRatiosChain creates a chain over the given sources
func NewRatiosChain(log *logger.Logger, sources ...Named[contracts.RatiosFetcher]) *RatiosChain {
	return &RatiosChain{sources: sources, logger: log.Module("fallback")}
}

// FetchRatios returns the first snapshot with at least one known ratio
func (c *RatiosChain) FetchRatios(ctx context.Context, symbol string) (*contracts.Ratios, error) {
	return first(ctx, c.logger, symbol, c.sources,
		func(s contracts.RatiosFetcher) (*contracts.Ratios, error) {
			return s.FetchRatios(ctx, symbol)
		},
		func(r *contracts.Ratios) bool { return r.IsEmpty() },
	)
}

// ListerChain tries listing sources in order
type ListerChain struct {
	sources []Named[contracts.SymbolLister]
	logger  *logger.Logger
}

// NewListerChain creates a chain over the given sources
func NewListerChain(log *logger.Logger, sources ...Named[contracts.SymbolLister]) *ListerChain {
	return &ListerChain{sources: sources, logger: log.Module("fallback")}
}

// ListSymbols returns the first non-empty listing
func (c *ListerChain) ListSymbols(ctx context.Context) ([]contracts.StockInfo, error) {
	return first(ctx, c.logger, "", c.sources,
		func(s contracts.SymbolLister) ([]contracts.StockInfo, error) {
			return s.ListSymbols(ctx)
		},
		func(list []contracts.StockInfo) bool { return len(list) == 0 },
	)
}

func first[S any, R any](
	ctx context.Context,
	log *logger.Logger,
	symbol string,
	sources []Named[S],
	call func(S) (R, error),
	empty func(R) bool,
) (R, error) {
	var zero R
	var errs []error

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := call(src.Source)
		if err == nil && !empty(out) {
			if len(errs) > 0 {
				log.WithFields(map[string]interface{}{
					"symbol": symbol,
					"source": src.Name,
				}).Info("Served by fallback source")
			}
			return out, nil
		}

		if err == nil {
			err = contracts.ErrNoData
		}
		errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
		log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"source": src.Name,
		}).WithError(err).Warn("Source failed, trying next")
	}

	if len(errs) == 0 {
		return zero, fmt.Errorf("no sources configured: %w", contracts.ErrNoData)
	}
	return zero, fmt.Errorf("all sources failed for %q: %w", symbol, errors.Join(errs...))
}
