// Package generate writes new AI stock reports with Claude and stores them.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/stockreport/internal/store"
)

// ReportWriter produces a draft report for one stock.
type ReportWriter interface {
	GenerateReport(ctx context.Context, name, code string) (*Draft, error)
}

// Generator retries transient writer failures, validates the draft and
// saves it as the stock's report for today.
type Generator struct {
	writer  ReportWriter
	store   store.Store
	stats   *LLMStats
	log     *slog.Logger
	now     func() time.Time
	backoff func(attempt int) time.Duration
}

func NewGenerator(w ReportWriter, st store.Store, stats *LLMStats, log *slog.Logger) *Generator {
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		writer:  w,
		store:   st,
		stats:   stats,
		log:     log,
		now:     time.Now,
		backoff: Backoff,
	}
}

// Stats returns the latency tracker.
func (g *Generator) Stats() *LLMStats {
	return g.stats
}

// Generate writes and saves a report for code.
func (g *Generator) Generate(ctx context.Context, code string) (*store.Report, error) {
	code = store.NormalizeCode(code)
	log := g.log.With("stock_code", code)

	name, err := g.store.StockName(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup stock name: %w", err)
	}
	if name == "" {
		name = code
	}

	var draft *Draft
	for attempt := range MaxRetries {
		start := time.Now()
		draft, err = g.writer.GenerateReport(ctx, name, code)
		if err == nil {
			g.stats.Record(time.Since(start))
			break
		}
		g.stats.RecordFailure(time.Since(start))
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable generation error", "attempt", attempt, "error", err)
		select {
		case <-time.After(g.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if err := Validate(draft); err != nil {
		return nil, err
	}

	y, m, d := g.now().Date()
	r := store.Report{
		StockCode: code,
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Markdown:  draft.Report,
		Position:  draft.Position,
	}
	if err := g.store.SaveReport(ctx, r); err != nil {
		return nil, err
	}
	log.Info("report generated", "position", r.Position, "sections", len(Outline(r.Markdown)))
	return &r, nil
}
