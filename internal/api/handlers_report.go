package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/stockreport/internal/render"
	"github.com/dgallion1/stockreport/internal/schedule"
	"github.com/dgallion1/stockreport/internal/surface"
	"github.com/dgallion1/stockreport/internal/typing"
)

const msgEmptyCode = "종목코드가 비어있습니다."

// handleReport returns the report document for ?stock_code=.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	resp, status := s.reports.Report(r.Context(), r.URL.Query().Get("stock_code"))
	writeJSON(w, status, resp)
}

// handleStream types the report to the client as Server-Sent Events. The
// stream ends with an "end" event carrying the session snapshot.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("stock_code"))
	if code == "" {
		jsonError(w, msgEmptyCode, http.StatusBadRequest)
		return
	}

	sse, err := surface.NewSSE(w)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StreamTimeout)
	defer cancel()

	// Nothing renders until the session event is out.
	gate := schedule.NewGate(schedule.Clock{})
	defer gate.Open()

	log := s.log.With("stock_code", code, "remote", r.RemoteAddr)
	renderer := render.New(
		render.Host{Surface: sse, Title: sse, Styles: sse},
		s.reports,
		gate,
		log,
		render.Options{Delays: s.delays()},
	)
	defer renderer.Stop()

	sess := renderer.Render(ctx, code)
	s.sessions.Put(sess, r.RemoteAddr)
	log = log.With("session_id", sess.ID)

	if err := sse.Event("session", map[string]string{"session_id": sess.ID, "stock_code": code}); err != nil {
		log.Warn("stream write failed", "event", "session", "error", err)
		return
	}
	gate.Open()

	select {
	case <-sess.Done():
	case <-ctx.Done():
		renderer.Stop()
		log.Info("stream closed before render finished", "error", ctx.Err())
	}

	if err := sse.Err(); err != nil {
		log.Warn("stream write failed", "error", err)
		return
	}
	if err := sse.Event("end", sess.Snapshot()); err != nil {
		log.Warn("stream write failed", "event", "end", "error", err)
	}
}

// handleSession returns the state of a streaming session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) delays() typing.Delays {
	return typing.Delays{
		Char:       s.cfg.CharDelay,
		InterChunk: s.cfg.InterChunkDelay,
		Block:      s.cfg.BlockDelay,
	}
}
