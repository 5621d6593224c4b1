// Package store persists stock names and their AI reports.
package store

import (
	"context"
	"strings"
	"time"
)

// Report is one stored AI report for a stock.
type Report struct {
	StockCode string
	Date      time.Time
	Markdown  string
	Position  string // sentiment, e.g. 긍정, 중립, 부정
}

// Store reads and writes reports. Lookups that find nothing return a zero
// value and a nil error.
type Store interface {
	// StockName returns the display name for code, or "" if unknown.
	StockName(ctx context.Context, code string) (string, error)
	// LatestReport returns the most recent report for code, or nil.
	LatestReport(ctx context.Context, code string) (*Report, error)
	SaveReport(ctx context.Context, r Report) error
}

// NormalizeCode trims code and left-pads numeric codes to six digits.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) >= 6 {
		return code
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return code
		}
	}
	return strings.Repeat("0", 6-len(code)) + code
}
