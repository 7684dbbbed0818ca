package contracts

import "time"

// Universe represents the scannable symbols passed from S1 to selection
// ⭐ SSOT: S1 → selection 스캔 대상 종목 전달
type Universe struct {
	Date       time.Time         `json:"date"`
	Stocks     []string          `json:"stocks"`
	Excluded   map[string]string `json:"excluded"` // 제외 종목: 사유
	TotalCount int               `json:"total_count,omitempty"`
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Stocks {
		if s == symbol {
			return true
		}
	}
	return false
}

// Count returns the number of scannable symbols
func (u *Universe) Count() int {
	return len(u.Stocks)
}
