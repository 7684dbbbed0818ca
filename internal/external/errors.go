// Package external holds the market data sources and the shared error types they return.
package external

import (
	"errors"
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/httputil"
)

// ErrNoData is returned when a source answers but has nothing for the symbol.
// It matches contracts.ErrNoData with errors.Is.
var ErrNoData = fmt.Errorf("source returned nothing: %w", contracts.ErrNoData)

// APIError wraps a failure from one data source
type APIError struct {
	Source     string // vci, yahoo, cafef
	Symbol     string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Source, e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError wraps err, lifting the status code out of an HTTP status error when present
func NewAPIError(source, symbol string, err error) *APIError {
	apiErr := &APIError{Source: source, Symbol: symbol, Err: err}
	var status *httputil.StatusError
	if errors.As(err, &status) {
		apiErr.StatusCode = status.StatusCode
	}
	return apiErr
}
