package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intentnet/core"
	"intentnet/core/types"
	"intentnet/native/auction"
	"intentnet/native/intents"
)

// Node is the surface the HTTP API needs from the settlement node.
type Node interface {
	SubmitIntent(owner types.Address, assetIn, assetOut types.AssetID, amountIn, amountOut *big.Int, swapType types.SwapType, partial bool, deadline int64) (types.IntentID, error)
	CancelIntent(id types.IntentID, caller types.Address) error
	GetIntent(id types.IntentID) (*types.Intent, bool)
	OpenIntents() []*types.Intent
	SubmitSolution(who types.Address, solution *types.Solution) error
	Balance(owner types.Address, asset types.AssetID) (free, reserved *big.Int)
	Block() uint64
	Winner() (auction.Winner, bool)
}

// Server exposes the node over HTTP/JSON.
type Server struct {
	node    Node
	logger  *slog.Logger
	limiter *RateLimiter
	router  chi.Router
}

// NewServer builds the HTTP API. A nil limiter disables rate limiting.
func NewServer(node Node, logger *slog.Logger, limiter *RateLimiter) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{node: node, logger: logger, limiter: limiter}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)

	writeLimit := func(next http.Handler) http.Handler { return next }
	if s.limiter != nil {
		writeLimit = s.limiter.Middleware()
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(writeLimit).Post("/intents", s.handleSubmitIntent)
		r.Get("/intents", s.handleListIntents)
		r.Get("/intents/{id}", s.handleGetIntent)
		r.With(writeLimit).Post("/intents/{id}/cancel", s.handleCancelIntent)
		r.With(writeLimit).Post("/solutions", s.handleSubmitSolution)
		r.Get("/auction", s.handleAuction)
		r.Get("/balances/{owner}/{asset}", s.handleBalance)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorPayload{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitIntent(w http.ResponseWriter, r *http.Request) {
	var req submitIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	amountIn, err := parseAmount("amountIn", req.AmountIn)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	amountOut, err := parseAmount("amountOut", req.AmountOut)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	swapType, err := parseSwapType(req.SwapType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.node.SubmitIntent(owner, types.AssetID(req.AssetIn), types.AssetID(req.AssetOut), amountIn, amountOut, swapType, req.Partial, req.Deadline)
	if err != nil {
		s.writeError(w, intentStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleListIntents(w http.ResponseWriter, _ *http.Request) {
	open := s.node.OpenIntents()
	payload := make([]intentPayload, 0, len(open))
	for _, intent := range open {
		payload = append(payload, intentToPayload(intent))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseIntentID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	intent, ok := s.node.GetIntent(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, intents.ErrIntentNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, intentToPayload(intent))
}

func (s *Server) handleCancelIntent(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseIntentID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req cancelIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := types.ParseAddress(req.Owner)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.node.CancelIntent(id, caller); err != nil {
		s.writeError(w, intentStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (s *Server) handleSubmitSolution(w http.ResponseWriter, r *http.Request) {
	var req submitSolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	who, solution, err := req.toSolution()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.node.SubmitSolution(who, solution); err != nil {
		switch {
		case errors.Is(err, auction.ErrScoreNotImproved), errors.Is(err, auction.ErrStaleBlock):
			s.writeError(w, http.StatusConflict, err)
		case errors.Is(err, core.ErrInvalidSolution), errors.Is(err, auction.ErrEmptySolution):
			s.writeError(w, http.StatusUnprocessableEntity, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, auctionStatus(s.node))
}

func (s *Server) handleAuction(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, auctionStatus(s.node))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := types.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := strconv.ParseUint(chi.URLParam(r, "asset"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	free, reserved := s.node.Balance(owner, types.AssetID(asset))
	s.writeJSON(w, http.StatusOK, balancePayload{
		Owner:    owner.String(),
		Asset:    uint32(asset),
		Free:     free.String(),
		Reserved: reserved.String(),
	})
}

func auctionStatus(node Node) auctionPayload {
	payload := auctionPayload{Block: node.Block()}
	if winner, ok := node.Winner(); ok {
		payload.Winner = winner.Who.String()
		payload.Score = winner.Score
	}
	return payload
}

func intentStatus(err error) int {
	switch {
	case errors.Is(err, intents.ErrIntentNotFound):
		return http.StatusNotFound
	case errors.Is(err, intents.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, intents.ErrInvalidIntent), errors.Is(err, intents.ErrExpired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
