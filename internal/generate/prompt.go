package generate

import (
	"fmt"
	"strings"
	"time"
)

const SystemPrompt = `당신은 한국 주식 시장을 다루는 증권 애널리스트입니다. 개인 투자자가 읽기 쉬운 한국어 리포트를 작성합니다.`

const ReportPrompt = `Write an equity research note in Korean for the stock below. Return a JSON object with exactly these fields:

- "position": overall outlook, one of "긍정", "중립", "부정"
- "report": the note as GitHub-flavored markdown

Rules for "report":
- Start with a "## 요약" section of two to four sentences
- Follow with "## 실적 및 재무", "## 산업 동향", "## 리스크 요인" and "## 전망" sections
- Use bullet lists for key figures; a small table is allowed
- Do not repeat the stock name as a top-level title
- No investment advice or price targets

Respond with ONLY the JSON object, no other text.`

// BuildReportPrompt creates the user message for one stock.
func BuildReportPrompt(name, code string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(ReportPrompt)
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "Stock: %s (%s)\n", name, code)
	fmt.Fprintf(&sb, "As of: %s\n", now.Format("2006-01-02"))
	sb.WriteString("---\n")
	return sb.String()
}
