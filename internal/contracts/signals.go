package contracts

import "time"

// SignalType is the direction of a signal event
type SignalType string

const (
	Buy  SignalType = "BUY"
	Sell SignalType = "SELL"
)

// Strength grades a signal event
type Strength string

const (
	Strong Strength = "STRONG"
	Medium Strength = "MEDIUM"
)

// Indicator families that emit signal events
const (
	IndicatorRSI    = "RSI"
	IndicatorMACD   = "MACD"
	IndicatorMA     = "MA"
	IndicatorBB     = "BB"
	IndicatorStoch  = "STOCH"
	IndicatorVolume = "VOLUME"
)

// SignalEvent is a discrete BUY/SELL event on the latest bar
type SignalEvent struct {
	Type      SignalType `json:"type"`
	Indicator string     `json:"indicator"`
	Strength  Strength   `json:"strength"`
	Reason    string     `json:"reason"`
}

// Entry / exit point types
const (
	EntryBuy       = "MUA"
	ExitTakeProfit = "CHỐT LỜI"
	ExitStopLoss   = "CẮT LỖ"
)

// EntryPoint is a suggested buy level
type EntryPoint struct {
	Type   string  `json:"type"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}

// ExitPoint is a suggested take-profit or stop-loss level
type ExitPoint struct {
	Type      string   `json:"type"`
	Price     float64  `json:"price"`
	ProfitPct *float64 `json:"profit_pct,omitempty"`
	LossPct   *float64 `json:"loss_pct,omitempty"`
	Reason    string   `json:"reason"`
}

// RiskReward pairs the first take-profit with the first stop-loss
type RiskReward struct {
	Ratio           float64 `json:"ratio"`
	PotentialProfit float64 `json:"potential_profit"`
	PotentialLoss   float64 `json:"potential_loss"`
	TakeProfit      float64 `json:"take_profit"`
	StopLoss        float64 `json:"stop_loss"`
}

// Recommendation labels
const (
	LabelStrongBuy  = "MUA MẠNH"
	LabelBuy        = "MUA"
	LabelHold       = "GIỮ"
	LabelSell       = "BÁN"
	LabelStrongSell = "BÁN MẠNH"
)

// Investment timeframe labels
const (
	TimeframeShort      = "NGẮN HẠN (1-3 tháng)"
	TimeframeMedium     = "TRUNG HẠN (3-12 tháng)"
	TimeframeLong       = "DÀI HẠN (> 1 năm)"
	TimeframeUnsuitable = "KHÔNG PHÙ HỢP"
)

// Trend labels
const (
	TrendStrongUp     = "TĂNG MẠNH"
	TrendUp           = "TĂNG"
	TrendStrongDown   = "GIẢM MẠNH"
	TrendDown         = "GIẢM"
	TrendSideways     = "SIDEWAY"
	TrendUndetermined = "KHÔNG XÁC ĐỊNH"
	TrendInsufficient = "KHÔNG ĐỦ DỮ LIỆU"
)

// Evaluation is the full recommendation for one symbol
// ⭐ SSOT: S2 → selection/API 종목 평가 결과
type Evaluation struct {
	Symbol           string               `json:"symbol"`
	Date             time.Time            `json:"date"`
	Close            float64              `json:"close"`
	TechnicalScore   float64              `json:"technical_score"`
	FundamentalScore float64              `json:"fundamental_score"`
	OverallScore     float64              `json:"overall_score"`
	Signal           string               `json:"signal"`
	Trend            string               `json:"trend"`
	Signals          []SignalEvent        `json:"signals"`
	EntryPoints      []EntryPoint         `json:"entry_points"`
	ExitPoints       []ExitPoint          `json:"exit_points"`
	RiskReward       *RiskReward          `json:"risk_reward,omitempty"`
	Timeframes       []string             `json:"investment_timeframe"`
	Fundamentals     *FundamentalAnalysis `json:"fundamental_analysis,omitempty"`
}

// HasTimeframe reports whether label is among the suggested timeframes
func (e *Evaluation) HasTimeframe(label string) bool {
	for _, tf := range e.Timeframes {
		if tf == label {
			return true
		}
	}
	return false
}

// Grade tags one fundamental detail line
type Grade string

const (
	GradeGood    Grade = "good"
	GradeNeutral Grade = "neutral"
	GradeBad     Grade = "bad"
)

// Detail is one graded line of a fundamental analysis block
type Detail struct {
	Grade Grade  `json:"grade"`
	Text  string `json:"text"`
}

// AnalysisBlock is a verdict with its supporting details
type AnalysisBlock struct {
	Verdict string   `json:"verdict"`
	Details []Detail `json:"details"`
}

// FundamentalAnalysis groups the categorical fundamental verdicts
type FundamentalAnalysis struct {
	Score           float64       `json:"score"`
	Valuation       AnalysisBlock `json:"valuation"`
	Profitability   AnalysisBlock `json:"profitability"`
	FinancialHealth AnalysisBlock `json:"financial_health"`
	Growth          AnalysisBlock `json:"growth"`
}
