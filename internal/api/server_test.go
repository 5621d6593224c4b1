package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/stockreport/internal/config"
	"github.com/dgallion1/stockreport/internal/generate"
	"github.com/dgallion1/stockreport/internal/render"
	"github.com/dgallion1/stockreport/internal/report"
	"github.com/dgallion1/stockreport/internal/sessions"
	"github.com/dgallion1/stockreport/internal/store"
)

const testKey = "secret"

const testMarkdown = `## 요약

반도체 업황이 회복되고 있습니다.

## 전망

- 메모리 가격 상승
- 재고 감소
`

type fakeWriter struct{}

func (fakeWriter) GenerateReport(_ context.Context, name, _ string) (*generate.Draft, error) {
	return &generate.Draft{
		Position: "긍정",
		Report:   "## 요약\n\n" + name + "의 3분기 실적은 메모리 가격 반등에 힘입어 개선될 것으로 보입니다.\n\n## 리스크 요인\n\n- 환율",
	}, nil
}

func testConfig() config.Config {
	return config.Config{
		APIKey:          testKey,
		AnthropicModel:  "claude-test",
		CharDelay:       time.Microsecond,
		InterChunkDelay: time.Microsecond,
		BlockDelay:      time.Microsecond,
		SessionTTL:      time.Minute,
		StreamTimeout:   10 * time.Second,
	}
}

type testEnv struct {
	server *Server
	store  *store.Memory
	http   *httptest.Server
}

func newTestEnv(t *testing.T, withGeneration bool) *testEnv {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	st := store.NewMemory()
	st.SetName("005930", "삼성전자")
	require.NoError(t, st.SaveReport(context.Background(), store.Report{
		StockCode: "005930",
		Date:      time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
		Markdown:  testMarkdown,
		Position:  "긍정",
	}))

	cfg := testConfig()
	deps := Deps{
		Reports:  report.NewService(st, log),
		Sessions: sessions.NewRegistry(cfg.SessionTTL),
	}
	if withGeneration {
		stats := generate.NewLLMStats(time.Hour)
		q := generate.NewQueue(generate.NewGenerator(fakeWriter{}, st, stats, log), log, 1, 4, time.Hour)
		q.Start(context.Background())
		t.Cleanup(q.Stop)
		deps.Jobs = q
		deps.Stats = stats
	}

	s := NewServer(deps, log, cfg)
	hs := httptest.NewServer(s)
	t.Cleanup(hs.Close)
	return &testEnv{server: s, store: st, http: hs}
}

func (e *testEnv) do(t *testing.T, method, path, body string, auth bool) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	resp, body := env.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["generation"])
}

func TestReportEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.do(t, http.MethodGet, "/api/ai_report?stock_code=005930", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "삼성전자 2025년 3분기 AI 전망 리포트", body["report_title"])
	assert.Equal(t, "긍정", body["sentiment_position"])
	assert.Contains(t, body["ai_report"], `class="ai-report-container"`)

	resp, body = env.do(t, http.MethodGet, "/api/ai_report?stock_code=", "", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "종목코드가 비어있습니다.", body["error"])

	resp, body = env.do(t, http.MethodGet, "/api/ai_report?stock_code=000660", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "AI 리포트 없음", body["report_title"])
	assert.Equal(t, "없음", body["sentiment_position"])
}

type event struct {
	name string
	data map[string]any
}

func readStream(t *testing.T, url string) []event {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []event
	var cur event
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			events = append(events, cur)
			cur = event{}
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cur.data))
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestStreamTypesReport(t *testing.T) {
	env := newTestEnv(t, false)
	events := readStream(t, env.http.URL+"/api/ai_report/stream?stock_code=005930")
	require.NotEmpty(t, events)

	first, last := events[0], events[len(events)-1]
	assert.Equal(t, "session", first.name)
	assert.Equal(t, "end", last.name)
	assert.Equal(t, string(render.OutcomeTyped), last.data["outcome"])
	assert.Equal(t, first.data["session_id"], last.data["session_id"])

	var typed strings.Builder
	breaks := 0
	var styles []string
	for _, ev := range events {
		switch ev.name {
		case "text":
			typed.WriteString(ev.data["text"].(string))
		case "break":
			breaks++
		case "style":
			styles = append(styles, ev.data["tag"].(string))
			assert.Contains(t, ev.data["rules"], ".ai-report-container")
		case "title":
			assert.Equal(t, "삼성전자 2025년 3분기 AI 전망 리포트", ev.data["title"])
		}
	}

	assert.Equal(t, []string{"005930"}, styles)
	assert.Equal(t, int(last.data["boundaries"].(float64)), breaks)
	assert.Equal(t, int(last.data["chars_typed"].(float64)), len([]rune(typed.String())))
	assert.True(t, strings.HasPrefix(typed.String(), "삼성전자 2025년 3분기 AI 전망 리포트삼성전자 AI 리포트요약"), typed.String())
	assert.NotContains(t, typed.String(), "{")

	id := first.data["session_id"].(string)
	resp, body := env.do(t, http.MethodGet, "/api/ai_report/sessions/"+id, "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "typed", body["outcome"])
	assert.Equal(t, "005930", body["stock_code"])
}

func TestStreamNoReport(t *testing.T) {
	env := newTestEnv(t, false)
	events := readStream(t, env.http.URL+"/api/ai_report/stream?stock_code=000660")

	// The no-report page has no report container, so it is shown as is.
	last := events[len(events)-1]
	assert.Equal(t, string(render.OutcomeRaw), last.data["outcome"])
	assert.Equal(t, report.NoReportTitle, last.data["report_title"])

	var markups, titles []string
	for _, ev := range events {
		assert.NotEqual(t, "text", ev.name)
		switch ev.name {
		case "markup":
			markups = append(markups, ev.data["html"].(string))
		case "title":
			titles = append(titles, ev.data["title"].(string))
		}
	}
	require.Len(t, markups, 2)
	assert.Equal(t, render.DefaultLoadingMarkup, markups[0])
	assert.Contains(t, markups[1], "000660에 대한 AI 리포트가 아직 존재하지 않습니다.")
	assert.NotContains(t, markups[1], "ai-report-container")
	assert.Equal(t, []string{report.NoReportTitle}, titles)
}

// endFailWriter accepts every event except the closing one.
type endFailWriter struct {
	*httptest.ResponseRecorder
}

func (w endFailWriter) Write(b []byte) (int, error) {
	if strings.Contains(string(b), "event: end\n") {
		return 0, errors.New("connection reset")
	}
	return w.ResponseRecorder.Write(b)
}

func TestStreamLogsFailedEndEvent(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	cfg := testConfig()
	st := store.NewMemory()
	s := NewServer(Deps{
		Reports:  report.NewService(st, log),
		Sessions: sessions.NewRegistry(cfg.SessionTTL),
	}, log, cfg)

	w := endFailWriter{httptest.NewRecorder()}
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ai_report/stream?stock_code=000660", nil))

	assert.Contains(t, w.Body.String(), "event: session\n")
	assert.NotContains(t, w.Body.String(), "event: end\n")

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == "stream write failed" && rec["event"] == "end" {
			found = true
			assert.Equal(t, "WARN", rec["level"])
			assert.Contains(t, rec["error"], "connection reset")
		}
	}
	assert.True(t, found, logs.String())
}

func TestStreamRequiresCode(t *testing.T) {
	env := newTestEnv(t, false)
	resp, body := env.do(t, http.MethodGet, "/api/ai_report/stream", "", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "종목코드가 비어있습니다.", body["error"])
}

func TestSessionNotFound(t *testing.T) {
	env := newTestEnv(t, false)
	resp, body := env.do(t, http.MethodGet, "/api/ai_report/sessions/nope", "", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, true)

	resp, body := env.do(t, http.MethodPost, "/api/ai_report/generate?stock_code=005930", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing authorization", body["error"])

	req, _ := http.NewRequest(http.MethodGet, env.http.URL+"/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	r2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, r2.StatusCode)
}

func TestGenerateDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	resp, _ := env.do(t, http.MethodPost, "/api/ai_report/generate?stock_code=005930", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/stats/llm", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGenerateAndPoll(t *testing.T) {
	env := newTestEnv(t, true)
	env.store.SetName("000660", "SK하이닉스")

	resp, body := env.do(t, http.MethodPost, "/api/ai_report/generate?stock_code=660", "", true)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	poll := body["poll_url"].(string)

	require.Eventually(t, func() bool {
		_, status := env.do(t, http.MethodGet, poll, "", true)
		return status["status"] == string(generate.StatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	_, rep := env.do(t, http.MethodGet, "/api/ai_report?stock_code=000660", "", false)
	assert.Equal(t, "긍정", rep["sentiment_position"])
	assert.Contains(t, rep["ai_report"], "SK하이닉스의 3분기 실적은")

	_, stats := env.do(t, http.MethodGet, "/api/stats/llm", "", true)
	assert.Equal(t, "claude-test", stats["model"])
	assert.Equal(t, float64(1), stats["stats"].(map[string]any)["count"])

	resp, _ = env.do(t, http.MethodPost, "/api/ai_report/generate", "", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/ai_report/generate/unknown", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBatchGenerate(t *testing.T) {
	env := newTestEnv(t, true)

	resp, body := env.do(t, http.MethodPost, "/api/ai_report/generate/batch", `{"stock_codes":["005930"," ","35420"]}`, true)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobs := body["jobs"].([]any)
	require.Len(t, jobs, 3)
	assert.Equal(t, "005930", jobs[0].(map[string]any)["stock_code"])
	assert.Equal(t, "종목코드가 비어있습니다.", jobs[1].(map[string]any)["error"])
	assert.Equal(t, "035420", jobs[2].(map[string]any)["stock_code"])

	resp, _ = env.do(t, http.MethodPost, "/api/ai_report/generate/batch", `{"stock_codes":[]}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/ai_report/generate/batch", `not json`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
