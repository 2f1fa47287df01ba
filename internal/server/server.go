// Package server exposes the engine over a websocket API plus a plain
// HTTP dump endpoint. The engine is single-threaded; one mutex
// serializes every edit regardless of which connection it came from.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/NYTimes/gziphandler"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridsheet/internal/engine"
	"gridsheet/internal/refs"
	"gridsheet/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Server struct {
	mu    sync.Mutex
	table *engine.Table
	st    *store.Store
	sheet string
	log   *slog.Logger
}

func New(table *engine.Table, st *store.Store, sheet string, log *slog.Logger) *Server {
	return &Server{table: table, st: st, sheet: sheet, log: log}
}

// Request is one websocket API message.
type Request struct {
	Action string `json:"action"` // evaluate | remove | copy | query | dump | clear
	Cell   string `json:"cell,omitempty"`
	Src    string `json:"src,omitempty"`
	Dst    string `json:"dst,omitempty"`
	Expr   string `json:"expr,omitempty"`
}

// Response mirrors Request; exactly one response per request, in order.
type Response struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Kind    string             `json:"kind,omitempty"` // SYNTAX | CIRCULAR_REF
	Updates map[string]float64 `json:"updates,omitempty"`
	Expr    string             `json:"expr,omitempty"`
	Value   float64            `json:"value,omitempty"`
	Cells   []engine.Entry     `json:"cells,omitempty"`
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	mux.Handle("/dump", gziphandler.GzipHandler(http.HandlerFunc(s.serveDump)))
	s.log.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	log := s.log.With("conn", id)
	log.Info("client connected", "remote", r.RemoteAddr)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("read failed", "err", err)
			} else {
				log.Info("client disconnected")
			}
			return
		}
		resp := s.handle(req)
		if !resp.OK {
			log.Info("request failed", "action", req.Action, "kind", resp.Kind, "err", resp.Error)
		}
		if err := conn.WriteJSON(resp); err != nil {
			log.Warn("write failed", "err", err)
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Action {
	case "evaluate":
		updates, err := s.table.Evaluate(req.Cell, req.Expr)
		if err != nil {
			return errResponse(err)
		}
		id, err := storeID(req.Cell)
		if err != nil {
			return errResponse(err)
		}
		if err := s.st.Put(s.sheet, id, req.Expr); err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Updates: updates}
	case "remove":
		updates, err := s.table.Remove(req.Cell)
		if err != nil {
			return errResponse(err)
		}
		id, err := storeID(req.Cell)
		if err != nil {
			return errResponse(err)
		}
		if err := s.st.Delete(s.sheet, id); err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Updates: updates}
	case "copy":
		updates, err := s.table.Copy(req.Src, req.Dst)
		if err != nil {
			return errResponse(err)
		}
		dst, err := storeID(req.Dst)
		if err != nil {
			return errResponse(err)
		}
		if expr, _, ok := s.table.Query(dst); ok && expr != "" {
			if err := s.st.Put(s.sheet, dst, expr); err != nil {
				return errResponse(err)
			}
		} else if err := s.st.Delete(s.sheet, dst); err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Updates: updates}
	case "query":
		expr, value, ok := s.table.Query(req.Cell)
		if !ok {
			return Response{OK: false, Error: fmt.Sprintf("no cell %s", req.Cell)}
		}
		return Response{OK: true, Expr: expr, Value: value}
	case "dump":
		return Response{OK: true, Cells: s.table.DumpValues()}
	case "clear":
		s.table.Clear()
		if err := s.st.Clear(s.sheet); err != nil {
			return errResponse(err)
		}
		return Response{OK: true}
	}
	return Response{OK: false, Error: fmt.Sprintf("unknown action %q", req.Action)}
}

// storeID is the canonical cell id used as the persistence key. The
// engine accepts ids in either case, so the raw request id cannot key
// the store: "B1" and "b1" must hit the same row.
func storeID(id string) (string, error) {
	r, err := refs.Parse(id)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

func errResponse(err error) Response {
	resp := Response{OK: false, Error: err.Error()}
	var e *engine.Error
	if errors.As(err, &e) {
		resp.Kind = e.Kind.String()
	}
	return resp
}

func (s *Server) serveDump(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cells := s.table.DumpValues()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cells); err != nil {
		s.log.Warn("dump write failed", "err", err)
	}
}
