// Package render reveals AI stock reports on a host surface one character
// at a time, pausing longer between blocks.
package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/dgallion1/stockreport/internal/fetch"
	"github.com/dgallion1/stockreport/internal/reportdoc"
	"github.com/dgallion1/stockreport/internal/schedule"
	"github.com/dgallion1/stockreport/internal/surface"
	"github.com/dgallion1/stockreport/internal/typing"
)

const (
	DefaultLoadingMarkup = `<p style="text-align: center; color: #888;">AI 리포트를 불러오는 중입니다...</p>`
	DefaultEmptyMarkup   = `<p style="text-align: center; color: #888;">AI 리포트가 아직 존재하지 않습니다.</p>`
	DefaultTitle         = "AI 리포트"

	failurePrefix = "AI 리포트를 불러오는 데 실패했습니다: "
)

var (
	loadingHints = surface.Hints{OverflowY: "auto", MaxHeight: "600px", Height: "auto"}
	typingHints  = surface.Hints{
		WhiteSpace: "pre-wrap",
		FontFamily: "'Malgun Gothic', 'Apple SD Gothic Neo', sans-serif",
		LineHeight: "1.6",
		Color:      "#444",
		FontSize:   "1.05em",
		Padding:    "15px",
	}
	hiddenOverflow = surface.Hints{OverflowY: "hidden"}
	autoOverflow   = surface.Hints{OverflowY: "auto"}
)

// Options tune a Renderer. Zero values fall back to defaults.
type Options struct {
	Delays        typing.Delays
	LoadingMarkup string
	EmptyMarkup   string
	DefaultTitle  string

	// OnComplete runs when a session resolves without error.
	OnComplete func(*Session)
	// OnError runs when a session fails, is superseded, or is canceled.
	OnError func(*Session, error)
}

func (o Options) withDefaults() Options {
	if o.Delays == (typing.Delays{}) {
		o.Delays = typing.DefaultDelays()
	}
	if o.LoadingMarkup == "" {
		o.LoadingMarkup = DefaultLoadingMarkup
	}
	if o.EmptyMarkup == "" {
		o.EmptyMarkup = DefaultEmptyMarkup
	}
	if o.DefaultTitle == "" {
		o.DefaultTitle = DefaultTitle
	}
	return o
}

// Host groups the collaborators a render writes to. Title and Styles
// may be nil.
type Host struct {
	Surface surface.Surface
	Title   surface.TitleLabel
	Styles  surface.StyleRegistry
}

// Renderer drives report renders into a single host. At most one session
// is active; every scheduled step checks the generation it was created
// under and exits without side effects once a newer render took over.
type Renderer struct {
	mu      sync.Mutex
	surface surface.Surface
	title   surface.TitleLabel
	styles  surface.StyleRegistry
	fetcher fetch.Fetcher
	sched   schedule.Scheduler
	opts    Options
	log     *slog.Logger

	generation uint64
	current    *Session
	timer      schedule.Timer
}

func New(host Host, f fetch.Fetcher, sched schedule.Scheduler, log *slog.Logger, opts Options) *Renderer {
	if host.Title == nil {
		host.Title = surface.NopTitle{}
	}
	if host.Styles == nil {
		host.Styles = surface.NopStyles{}
	}
	if sched == nil {
		sched = schedule.Clock{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Renderer{
		surface: host.Surface,
		title:   host.Title,
		styles:  host.Styles,
		fetcher: f,
		sched:   sched,
		opts:    opts.withDefaults(),
		log:     log,
	}
}

// Render starts showing the report for subjectID and returns its session.
// If the same subject is already loaded or loading, the existing session
// is returned and nothing else happens. Any other active session is
// superseded.
func (r *Renderer) Render(ctx context.Context, subjectID string) *Session {
	r.mu.Lock()
	if cur := r.current; cur != nil && cur.SubjectID == subjectID && cur.loaded {
		r.mu.Unlock()
		r.log.Debug("report already loaded or loading", "stock_code", subjectID, "session_id", cur.ID)
		return cur
	}

	notify := r.supersedeLocked()
	r.generation++
	s := newSession(subjectID, r.generation)
	s.loaded = true
	r.current = s
	r.timer = r.sched.AfterFunc(0, func() { r.load(ctx, s) })
	r.mu.Unlock()

	notify()
	r.log.Debug("render started", "stock_code", subjectID, "session_id", s.ID, "generation", s.Generation)
	return s
}

// Stop invalidates the active session, if any. Scheduled steps of that
// session become no-ops.
func (r *Renderer) Stop() {
	r.mu.Lock()
	notify := r.supersedeLocked()
	r.generation++
	r.current = nil
	r.mu.Unlock()
	notify()
}

// Current returns the active session, or nil.
func (r *Renderer) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Renderer) isCurrentLocked(s *Session) bool {
	return r.current == s && s.Generation == r.generation
}

func (r *Renderer) supersedeLocked() func() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.current == nil {
		return func() {}
	}
	return r.finishLocked(r.current, OutcomeSuperseded, ErrSuperseded)
}

// finishLocked resolves s and returns the callback to run once the lock
// is released.
func (r *Renderer) finishLocked(s *Session, o Outcome, err error) func() {
	if !s.resolve(o, err) {
		return func() {}
	}
	if err != nil {
		r.log.Info("render ended", "stock_code", s.SubjectID, "session_id", s.ID, "outcome", o, "error", err)
	} else {
		r.log.Info("render ended", "stock_code", s.SubjectID, "session_id", s.ID, "outcome", o)
	}

	onComplete, onError := r.opts.OnComplete, r.opts.OnError
	return func() {
		if err != nil {
			if onError != nil {
				onError(s, err)
			}
			return
		}
		if onComplete != nil {
			onComplete(s)
		}
	}
}

func (r *Renderer) load(ctx context.Context, s *Session) {
	r.mu.Lock()
	if !r.isCurrentLocked(s) {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.surface.Clear()
	r.surface.SetHints(loadingHints)
	r.surface.SetMarkup(r.opts.LoadingMarkup)
	s.setPhase(PhaseLoading)
	r.mu.Unlock()

	resp, err := r.fetcher.FetchReport(ctx, s.SubjectID)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}

	r.mu.Lock()
	if !r.isCurrentLocked(s) {
		r.mu.Unlock()
		return
	}
	var notify func()
	switch {
	case ctx.Err() != nil:
		s.loaded = false
		notify = r.finishLocked(s, OutcomeCanceled, ctx.Err())
	case err != nil:
		notify = r.failLocked(s, &TransportError{Err: err})
	case !resp.Success:
		notify = r.failLocked(s, &ApplicationError{Message: resp.Error})
	case resp.Report == "":
		notify = r.showEmptyLocked(s)
	default:
		notify = r.showReportLocked(ctx, s, resp)
	}
	r.mu.Unlock()
	notify()
}

func (r *Renderer) failLocked(s *Session, err error) func() {
	s.loaded = false
	r.log.Error("report load failed", "stock_code", s.SubjectID, "session_id", s.ID, "error", err)
	r.surface.SetMarkup(`<p class="error-message">` + failurePrefix + html.EscapeString(userMessage(err)) + `</p>`)
	r.surface.SetHints(hiddenOverflow)
	return r.finishLocked(s, OutcomeFailed, err)
}

func (r *Renderer) showEmptyLocked(s *Session) func() {
	r.surface.SetMarkup(r.opts.EmptyMarkup)
	r.surface.SetHints(hiddenOverflow)
	r.title.SetTitle(r.opts.DefaultTitle)
	return r.finishLocked(s, OutcomePlaceholder, nil)
}

func (r *Renderer) showReportLocked(ctx context.Context, s *Session, resp *fetch.Response) func() {
	s.setMeta(resp.Title, resp.Sentiment)
	r.surface.Clear()
	r.styles.RemoveByTag(s.SubjectID)

	doc, err := reportdoc.Parse(resp.Report)
	if err != nil {
		if !errors.Is(err, reportdoc.ErrNoContainer) {
			r.log.Warn("report markup unreadable, showing raw", "stock_code", s.SubjectID, "error", err)
		}
		r.surface.SetMarkup(resp.Report)
		r.surface.SetHints(autoOverflow)
		r.setTitleLocked(resp.Title)
		return r.finishLocked(s, OutcomeRaw, nil)
	}

	if doc.Style != "" {
		r.styles.Install(doc.Style, s.SubjectID)
	}
	r.setTitleLocked(resp.Title)

	q := typing.BuildQueue(doc)
	s.state = typing.NewState(q, r.opts.Delays)
	s.setQueue(q)
	r.surface.SetHints(typingHints)
	r.log.Debug("typing report", "stock_code", s.SubjectID, "session_id", s.ID,
		"text_chunks", q.TextChunks(), "boundaries", q.Boundaries())

	r.timer = r.sched.AfterFunc(0, func() { r.tick(ctx, s) })
	return func() {}
}

func (r *Renderer) setTitleLocked(title string) {
	if title != "" {
		r.title.SetTitle(title)
	}
}

// tick performs one progression step and schedules the next.
func (r *Renderer) tick(ctx context.Context, s *Session) {
	r.mu.Lock()
	if !r.isCurrentLocked(s) || s.state == nil {
		r.mu.Unlock()
		return
	}
	r.timer = nil

	if err := ctx.Err(); err != nil {
		s.loaded = false
		notify := r.finishLocked(s, OutcomeCanceled, err)
		r.mu.Unlock()
		notify()
		return
	}

	a, ok := s.state.Step()
	if !ok {
		notify := r.finishLocked(s, OutcomeTyped, nil)
		r.mu.Unlock()
		notify()
		return
	}

	switch a.Kind {
	case typing.ActionChar:
		r.surface.AppendText(string(a.Char))
		s.addChar()
	case typing.ActionBreak:
		r.surface.AppendBreak()
	}
	r.timer = r.sched.AfterFunc(a.Delay, func() { r.tick(ctx, s) })
	r.mu.Unlock()
}
