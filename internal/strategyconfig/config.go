package strategyconfig

import "github.com/wonny/vnquant/internal/contracts"

// Config는 스캔 전략의 전체 설정.
// 점수 임계값(70/60/45/35)은 고정 상수로 설정 대상이 아님.
type Config struct {
	Meta     Meta                          `yaml:"meta" json:"meta"`
	Universe Universe                      `yaml:"universe" json:"universe"`
	Scan     Scan                          `yaml:"scan" json:"scan"`
	Presets  map[string]contracts.Criteria `yaml:"presets" json:"presets" validate:"dive"`
	Schedule Schedule                      `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Universe S1: 스캔 대상 풀
type Universe struct {
	Exchanges       []string `yaml:"exchanges" json:"exchanges" validate:"required,min=1,dive,oneof=HOSE HNX UPCOM"`
	Exclude         []string `yaml:"exclude" json:"exclude"`
	MaxSymbols      int      `yaml:"max_symbols" json:"max_symbols" validate:"gte=0"`
	CommonStockOnly bool     `yaml:"common_stock_only" json:"common_stock_only"`
}

// Scan 스캐너 동작
type Scan struct {
	Workers         int     `yaml:"workers" json:"workers" validate:"gte=1,lte=64"`
	RatePerSec      float64 `yaml:"rate_per_sec" json:"rate_per_sec" validate:"gte=0"`
	MinBars         int     `yaml:"min_bars" json:"min_bars" validate:"gte=20"`
	TopN            int     `yaml:"top_n" json:"top_n" validate:"gte=1"`
	MinOverallScore float64 `yaml:"min_overall_score" json:"min_overall_score" validate:"gte=0,lte=100"`
}

// Schedule cron 스펙 (초 포함 6필드)
type Schedule struct {
	Timezone     string `yaml:"timezone" json:"timezone"`
	CacheUpdate  string `yaml:"cache_update" json:"cache_update"`
	MarketScan   string `yaml:"market_scan" json:"market_scan"`
	CacheCleanup string `yaml:"cache_cleanup" json:"cache_cleanup"`
}

// Preset returns a named criteria preset
func (c *Config) Preset(name string) (contracts.Criteria, bool) {
	p, ok := c.Presets[name]
	return p, ok
}

// Default returns the built-in strategy used when no file is configured
func Default() *Config {
	f := contracts.F
	return &Config{
		Meta: Meta{
			StrategyID: "vn_equity_default",
			Version:    "1",
			Timezone:   "Asia/Ho_Chi_Minh",
		},
		Universe: Universe{
			Exchanges:       []string{"HOSE", "HNX"},
			MaxSymbols:      50,
			CommonStockOnly: true,
		},
		Scan: Scan{
			Workers:         8,
			RatePerSec:      10,
			MinBars:         20,
			TopN:            20,
			MinOverallScore: 55,
		},
		Presets: map[string]contracts.Criteria{
			"strong_buy": {
				MinOverallScore: f(70),
				SignalFilter:    []string{contracts.LabelStrongBuy},
			},
			"oversold_bounce": {
				RSIMax: f(30),
			},
			"momentum": {
				MinMonthlyReturn: f(5),
				MinVolumeRatio:   f(1.5),
				TrendFilter:      []string{contracts.TrendUp, contracts.TrendStrongUp},
			},
		},
		Schedule: Schedule{
			Timezone:     "Asia/Ho_Chi_Minh",
			CacheUpdate:  "0 30 15 * * 1-5", // 장 마감 후
			MarketScan:   "0 0 16 * * 1-5",
			CacheCleanup: "0 0 3 * * 0",
		},
	}
}
