// Package rpc exposes the ledger core over HTTP. It is a thin collaborator:
// every handler maps one route onto one core operation and owns no ledger
// state of its own.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sliceledger/core"
	"sliceledger/rpc/middleware"
	"sliceledger/storage"
	"sliceledger/store"
)

// Server wires the ledger core and its collaborators into an HTTP handler.
type Server struct {
	ledger   *core.Ledger
	auditor  *core.Auditor
	repairer *core.RepairEngine
	slices   *store.SliceStore
	archive  *storage.Archive
	logger   *slog.Logger
	limiter  *middleware.RateLimiter
}

// Config carries the server's collaborators. Archive may be nil, in which
// case sealed blocks and repair records are not persisted anywhere.
type Config struct {
	Ledger    *core.Ledger
	Auditor   *core.Auditor
	Repairer  *core.RepairEngine
	Slices    *store.SliceStore
	Archive   *storage.Archive
	Logger    *slog.Logger
	RateLimit middleware.RateLimit
}

// NewServer builds a server from cfg.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ledger:   cfg.Ledger,
		auditor:  cfg.Auditor,
		repairer: cfg.Repairer,
		slices:   cfg.Slices,
		archive:  cfg.Archive,
		logger:   logger,
		limiter:  middleware.NewRateLimiter(cfg.RateLimit),
	}
}

// Router returns the HTTP handler for the full API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.limiter.Middleware)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/entries", s.handleEnqueue)
		r.Get("/entries/{id}", s.handleEntry)
		r.Post("/seal", s.handleSeal)
		r.Get("/blocks", s.handleBlocks)
		r.Get("/blocks/{index}", s.handleBlock)
		r.Get("/verify", s.handleVerify)
		r.Get("/tamper", s.handleTamper)
		r.Post("/repair", s.handleRepair)
		r.Get("/repairs", s.handleRepairs)
		r.Post("/slices", s.handleStoreSlice)
		r.Get("/slices/{sliceID}", s.handleRetrieveSlice)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(started),
		)
	})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	id, err := s.ledger.Enqueue(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	entry := s.ledger.EntryByID(chi.URLParam(r, "id"))
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSeal(w http.ResponseWriter, r *http.Request) {
	block, err := s.ledger.SealPending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if block == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if s.archive != nil {
		if err := s.archive.PutBlock(block.Clone()); err != nil {
			s.logger.Error("archive sealed block", "index", block.Index, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleBlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Export())
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}
	block, err := s.ledger.Block(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	valid, message, err := s.ledger.Verify()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": valid, "message": message})
}

func (s *Server) handleTamper(w http.ResponseWriter, _ *http.Request) {
	indices, err := s.auditor.Detect()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if indices == nil {
		indices = []uint64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"indices":          indices,
		"keys_compromised": s.auditor.KeysCompromised(),
	})
}

func (s *Server) handleRepair(w http.ResponseWriter, _ *http.Request) {
	result, err := s.repairer.Repair()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.archive != nil {
		s.archiveRepair(result)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    result.Message,
		"repaired":   result.Repaired,
		"keys_reset": result.KeysReset,
	})
}

// archiveRepair persists the latest audit record and the re-sealed block
// snapshots. Archive failures are logged, never surfaced: the repair itself
// already happened.
func (s *Server) archiveRepair(result *core.RepairResult) {
	if trail := s.repairer.Trail(); len(trail) > 0 {
		if err := s.archive.AppendRepair(trail[len(trail)-1]); err != nil {
			s.logger.Error("archive repair record", "error", err)
		}
	}
	for _, index := range result.Repaired {
		block, err := s.ledger.Block(index)
		if err != nil {
			continue
		}
		if err := s.archive.PutBlock(block.Clone()); err != nil {
			s.logger.Error("archive repaired block", "index", index, "error", err)
		}
	}
}

func (s *Server) handleRepairs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.repairer.Trail())
}

func (s *Server) handleStoreSlice(w http.ResponseWriter, r *http.Request) {
	var slice map[string]any
	if err := json.NewDecoder(r.Body).Decode(&slice); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	id, err := s.slices.StoreSlice(slice)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.archive != nil {
		if err := s.archive.PutBlock(s.ledger.Latest().Clone()); err != nil {
			s.logger.Error("archive slice block", "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleRetrieveSlice(w http.ResponseWriter, r *http.Request) {
	slice, found, err := s.slices.RetrieveSlice(chi.URLParam(r, "sliceID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "slice not found")
		return
	}
	writeJSON(w, http.StatusOK, slice)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Default().Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
