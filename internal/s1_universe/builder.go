package s1_universe

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

// 보통주 티커: 영문 대문자 3자리 (ETF, 커버드워런트 제외)
var tickerPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Builder constructs the scannable universe from a listing source
type Builder struct {
	lister contracts.SymbolLister
	config Config
	logger *logger.Logger
	now    func() time.Time
}

// Config holds universe filter criteria
type Config struct {
	Exchanges       []string `yaml:"exchanges"`        // 허용 거래소 (HOSE, HNX)
	Exclude         []string `yaml:"exclude"`          // 제외 종목
	MaxSymbols      int      `yaml:"max_symbols"`      // 최대 종목 수 (0 = 무제한)
	CommonStockOnly bool     `yaml:"common_stock_only"` // ETF/CW 제외
}

// DefaultConfig returns HOSE + HNX common stocks, capped at 50 symbols
func DefaultConfig() Config {
	return Config{
		Exchanges:       []string{"HOSE", "HNX"},
		MaxSymbols:      50,
		CommonStockOnly: true,
	}
}

// NewBuilder creates a new Universe Builder
func NewBuilder(lister contracts.SymbolLister, config Config, log *logger.Logger) *Builder {
	return &Builder{
		lister: lister,
		config: config,
		logger: log.Module("s1_universe"),
		now:    time.Now,
	}
}

// WithMaxSymbols returns a builder sharing the lister with a different cap
func (b *Builder) WithMaxSymbols(n int) *Builder {
	cp := *b
	cp.config.MaxSymbols = n
	return &cp
}

// Build lists symbols and applies the exchange, exclusion and size filters.
// Stocks are sorted by symbol so the MaxSymbols cut is deterministic.
// ⭐ SSOT: S1 → selection 유니버스 생성
func (b *Builder) Build(ctx context.Context) (*contracts.Universe, error) {
	stocks, err := b.lister.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	universe := &contracts.Universe{
		Date:     b.now(),
		Stocks:   make([]string, 0, len(stocks)),
		Excluded: make(map[string]string),
	}

	sort.SliceStable(stocks, func(i, j int) bool {
		return strings.ToUpper(stocks[i].Symbol) < strings.ToUpper(stocks[j].Symbol)
	})

	seen := make(map[string]bool, len(stocks))
	for _, stock := range stocks {
		symbol := strings.ToUpper(strings.TrimSpace(stock.Symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if reason := b.checkExclusion(symbol, stock); reason != "" {
			universe.Excluded[symbol] = reason
			continue
		}
		if b.config.MaxSymbols > 0 && len(universe.Stocks) >= b.config.MaxSymbols {
			universe.Excluded[symbol] = fmt.Sprintf("최대 종목 수 초과 (%d)", b.config.MaxSymbols)
			continue
		}
		universe.Stocks = append(universe.Stocks, symbol)
	}

	universe.TotalCount = len(universe.Stocks)

	b.logger.WithFields(map[string]interface{}{
		"listed":   len(stocks),
		"eligible": universe.TotalCount,
		"excluded": len(universe.Excluded),
	}).Info("Universe built")

	return universe, nil
}

// checkExclusion checks if a stock should be excluded and returns the reason
func (b *Builder) checkExclusion(symbol string, stock contracts.StockInfo) string {
	// 우선순위 순서로 체크

	// 1. 제외 목록
	for _, ex := range b.config.Exclude {
		if strings.EqualFold(ex, symbol) {
			return "제외 목록"
		}
	}

	// 2. 거래소
	if len(b.config.Exchanges) > 0 && !containsFold(b.config.Exchanges, stock.Exchange) {
		return fmt.Sprintf("거래소 제외 (%s)", stock.Exchange)
	}

	// 3. 보통주 아님
	if b.config.CommonStockOnly && !tickerPattern.MatchString(symbol) {
		return "보통주 아님"
	}

	return "" // 통과
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
