package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres implements Store over the stock_list and stock_keywords tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects with the lib/pq driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (p *Postgres) StockName(ctx context.Context, code string) (string, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT stock_name FROM stock_list WHERE stock_code = $1",
		NormalizeCode(code))

	var name string
	err := row.Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get stock name: %w", err)
	}
	return name, nil
}

func (p *Postgres) LatestReport(ctx context.Context, code string) (*Report, error) {
	code = NormalizeCode(code)
	row := p.db.QueryRowContext(ctx,
		"SELECT date, report, position FROM stock_keywords WHERE stock_code = $1 ORDER BY date DESC LIMIT 1",
		code)

	r := Report{StockCode: code}
	var markdown, position sql.NullString
	err := row.Scan(&r.Date, &markdown, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	// A keyword row without report text counts as no report.
	if !markdown.Valid {
		return nil, nil
	}
	r.Markdown = markdown.String
	r.Position = position.String
	return &r, nil
}

func (p *Postgres) SaveReport(ctx context.Context, r Report) error {
	query := `
		INSERT INTO stock_keywords (stock_code, date, report, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stock_code, date) DO UPDATE SET
			report = EXCLUDED.report,
			position = EXCLUDED.position
	`
	_, err := p.db.ExecContext(ctx, query, NormalizeCode(r.StockCode), r.Date, r.Markdown, r.Position)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
