package contracts

import (
	"fmt"
	"time"
)

// InvestmentType selects the horizon of a market scan
type InvestmentType string

const (
	ShortTerm  InvestmentType = "SHORT_TERM"
	MediumTerm InvestmentType = "MEDIUM_TERM"
	LongTerm   InvestmentType = "LONG_TERM"
)

// ParseInvestmentType accepts SHORT_TERM / MEDIUM_TERM / LONG_TERM (case sensitive)
func ParseInvestmentType(s string) (InvestmentType, error) {
	switch InvestmentType(s) {
	case ShortTerm, MediumTerm, LongTerm:
		return InvestmentType(s), nil
	}
	return "", fmt.Errorf("unknown investment type %q", s)
}

// Period returns the lookback period code used for this horizon
func (t InvestmentType) Period() string {
	switch t {
	case MediumTerm:
		return "1Y"
	case LongTerm:
		return "3Y"
	default:
		return "3M"
	}
}

// NeedsFundamentals reports whether ratios are fetched for this horizon
func (t InvestmentType) NeedsFundamentals() bool {
	return t == MediumTerm || t == LongTerm
}

// Timeframe returns the timeframe label a result must carry to qualify
func (t InvestmentType) Timeframe() string {
	switch t {
	case MediumTerm:
		return TimeframeMedium
	case LongTerm:
		return TimeframeLong
	default:
		return TimeframeShort
	}
}

// ScanResult is one symbol's evaluation plus market metrics
type ScanResult struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name,omitempty"`
	Exchange         string    `json:"exchange,omitempty"`
	Date             time.Time `json:"date"`
	Price            float64   `json:"price"`
	Volume           int64     `json:"volume"`
	TechnicalScore   float64   `json:"technical_score"`
	FundamentalScore float64   `json:"fundamental_score"`
	OverallScore     float64   `json:"overall_score"`
	Signal           string    `json:"signal"`
	Trend            string    `json:"trend"`
	Timeframes       []string  `json:"investment_timeframe"`

	MonthlyReturn   float64  `json:"monthly_return"`   // %
	QuarterlyReturn float64  `json:"quarterly_return"` // %
	Volatility      *float64 `json:"volatility,omitempty"`
	VolumeRatio     float64  `json:"volume_ratio"`
	High52W         float64  `json:"high_52w"`
	Low52W          float64  `json:"low_52w"`
	DistFromHigh    float64  `json:"dist_from_high"` // %
	DistFromLow     float64  `json:"dist_from_low"`  // %
	BBPosition      *float64 `json:"bb_position,omitempty"`
	PriceVsSMA20    float64  `json:"price_vs_sma20"` // %
	PriceVsSMA50    float64  `json:"price_vs_sma50"` // %

	RSI   *float64 `json:"rsi,omitempty"`
	MACD  *float64 `json:"macd,omitempty"`
	SMA20 *float64 `json:"sma_20,omitempty"`
	SMA50 *float64 `json:"sma_50,omitempty"`

	SignalCount     int         `json:"signal_count"`
	EntryPointCount int         `json:"entry_points_count"`
	ExitPointCount  int         `json:"exit_points_count"`
	RiskReward      *RiskReward `json:"risk_reward,omitempty"`

	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// Criteria filters scan results. Zero-valued fields impose no constraint.
type Criteria struct {
	MinOverallScore  *float64 `json:"min_overall_score,omitempty" yaml:"min_overall_score" validate:"omitempty,gte=0,lte=100"`
	RSIMin           *float64 `json:"rsi_min,omitempty" yaml:"rsi_min" validate:"omitempty,gte=0,lte=100"`
	RSIMax           *float64 `json:"rsi_max,omitempty" yaml:"rsi_max" validate:"omitempty,gte=0,lte=100"`
	MinMonthlyReturn *float64 `json:"min_monthly_return,omitempty" yaml:"min_monthly_return"`
	MinVolumeRatio   *float64 `json:"min_volume_ratio,omitempty" yaml:"min_volume_ratio" validate:"omitempty,gte=0"`
	TrendFilter      []string `json:"trend_filter,omitempty" yaml:"trend_filter"`
	SignalFilter     []string `json:"signal_filter,omitempty" yaml:"signal_filter"`
}

// ScanReport is the output of one scan run
type ScanReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Results    []ScanResult      `json:"results"`
	Failures   map[string]string `json:"failures,omitempty"`
	Investment InvestmentType    `json:"investment_type,omitempty"`
}

// Breakout is a symbol whose close just crossed above its 50-day average on heavy volume
type Breakout struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name,omitempty"`
	Date        time.Time `json:"date"`
	Price       float64   `json:"price"`
	SMA50       float64   `json:"sma_50"`
	VolumeRatio float64   `json:"volume_ratio"`
	RSI         float64   `json:"rsi"`
}

// Oversold is a symbol trading below RSI 30 or at its lower Bollinger band
type Oversold struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name,omitempty"`
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
	RSI        *float64  `json:"rsi,omitempty"`
	BBPosition string    `json:"bb_position"`
}
