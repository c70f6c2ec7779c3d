// Command dmsserver exposes a single dms.Engine over a small HTTP admin
// surface: insert, find, remove, and a stats endpoint. It is a thin CRUD
// shim over the engine's four public operations, not a query layer.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dom999/emeralddb-go/pkg/diag"
	"github.com/dom999/emeralddb-go/pkg/dms"
)

type server struct {
	engine *dms.Engine
	router *chi.Mux
}

func newServer(engine *dms.Engine) *server {
	s := &server{engine: engine, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *server) setupRoutes() {
	s.router.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleInsert)
		r.Get("/{page}/{slot}", s.handleFind)
		r.Delete("/{page}/{slot}", s.handleRemove)
	})
	s.router.Get("/stats", s.handleStats)
}

func (s *server) handleInsert(w http.ResponseWriter, r *http.Request) {
	body, err := readAll(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rid, err := s.engine.Insert(body)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"page": rid.PageID, "slot": rid.SlotID})
}

func (s *server) handleFind(w http.ResponseWriter, r *http.Request) {
	rid, err := parseRID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := s.engine.Find(rid)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *server) handleRemove(w http.ResponseWriter, r *http.Request) {
	rid, err := parseRID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.Remove(rid); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func parseRID(r *http.Request) (dms.RID, error) {
	pageStr := chi.URLParam(r, "page")
	slotStr := chi.URLParam(r, "slot")
	page, err := strconv.ParseUint(pageStr, 10, 32)
	if err != nil {
		return dms.RID{}, fmt.Errorf("invalid page id %q", pageStr)
	}
	slot, err := strconv.ParseUint(slotStr, 10, 32)
	if err != nil {
		return dms.RID{}, fmt.Errorf("invalid slot id %q", slotStr)
	}
	return dms.RID{PageID: uint32(page), SlotID: uint32(slot)}, nil
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dms.Code(err) {
	case dms.ErrNotFound:
		status = http.StatusNotFound
	case dms.ErrInvalidArg:
		status = http.StatusBadRequest
	}
	writeError(w, status, err)
}

func main() {
	dataFile := flag.String("data", "dmsserver.dms", "path to the data file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	log, err := diag.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	engine, err := dms.Open(*dataFile, dms.WithLogger(log))
	if err != nil {
		log.Errorw("failed to open data file", "path", *dataFile, "error", err)
		return
	}
	defer engine.Close()

	s := newServer(engine)
	log.Infow("dmsserver listening", "addr", *addr, "data", *dataFile)
	if err := http.ListenAndServe(*addr, s.router); err != nil {
		log.Errorw("server stopped", "error", err)
	}
}
