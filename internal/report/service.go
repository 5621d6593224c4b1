// Package report builds the AI report payload served at /api/ai_report.
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/stockreport/internal/fetch"
	"github.com/dgallion1/stockreport/internal/store"
)

const (
	msgEmptyCode     = "종목코드가 비어있습니다."
	msgInternalError = "서버 내부 오류가 발생했습니다: "

	NoReportTitle     = "AI 리포트 없음"
	NoReportSentiment = "없음"
	UnknownSentiment  = "unknown"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Service answers report requests from a Store.
type Service struct {
	store store.Store
	md    goldmark.Markdown
	log   *slog.Logger
}

func NewService(st store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store: st,
		md:    goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		log:   log,
	}
}

// Report builds the response for code together with its HTTP status.
// Failures are reported in the response, never as a Go error.
func (s *Service) Report(ctx context.Context, code string) (*fetch.Response, int) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &fetch.Response{Success: false, Error: msgEmptyCode}, http.StatusBadRequest
	}

	resp, err := s.build(ctx, code)
	if err != nil {
		s.log.Error("build report failed", "stock_code", code, "error", err)
		return &fetch.Response{Success: false, Error: msgInternalError + err.Error()}, http.StatusInternalServerError
	}
	return resp, http.StatusOK
}

// FetchReport serves the in-process renderer. Application failures come
// back as Success=false.
func (s *Service) FetchReport(ctx context.Context, code string) (*fetch.Response, error) {
	resp, _ := s.Report(ctx, code)
	return resp, nil
}

func (s *Service) build(ctx context.Context, code string) (*fetch.Response, error) {
	name, err := s.store.StockName(ctx, code)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = code
	}

	rep, err := s.store.LatestReport(ctx, code)
	if err != nil {
		return nil, err
	}
	if rep == nil || strings.TrimSpace(rep.Markdown) == "" {
		markup, err := execute("empty", struct{ Name string }{name})
		if err != nil {
			return nil, err
		}
		return &fetch.Response{
			Success:   true,
			Report:    markup,
			Title:     NoReportTitle,
			Sentiment: NoReportSentiment,
		}, nil
	}

	var body bytes.Buffer
	if err := s.md.Convert([]byte(rep.Markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	position := rep.Position
	if position == "" {
		position = UnknownSentiment
	}
	title := MainTitle(name, rep.Date)
	markup, err := execute("report", reportView{
		Title:    title,
		Subtitle: name + " AI 리포트",
		Body:     template.HTML(body.String()),
		Date:     rep.Date.Format("2006-01-02"),
		Position: position,
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("report built", "stock_code", code, "date", rep.Date, "bytes", len(markup))
	return &fetch.Response{
		Success:   true,
		Report:    markup,
		Title:     title,
		Sentiment: position,
	}, nil
}

type reportView struct {
	Title    string
	Subtitle string
	Body     template.HTML
	Date     string
	Position string
}

// MainTitle names a report after the quarter it was written in.
func MainTitle(name string, date time.Time) string {
	quarter := (int(date.Month())-1)/3 + 1
	return fmt.Sprintf("%s %d년 %d분기 AI 전망 리포트", name, date.Year(), quarter)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return buf.String(), nil
}
