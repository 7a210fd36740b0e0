// Package rpc exposes the bridge over a JSON-RPC 2.0 HTTP endpoint and
// a websocket event stream.
package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/swap"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server serves the bridge API.
type Server struct {
	coordinator *swap.Coordinator
	adapters    map[string]adapter.ChainAdapter
	hub         *WSHub
	httpServer  *http.Server
	log         *logging.Logger
}

// NewServer wires the coordinator to the API and forwards its events
// to websocket subscribers.
func NewServer(addr string, coordinator *swap.Coordinator, adapters map[string]adapter.ChainAdapter) *Server {
	s := &Server{
		coordinator: coordinator,
		adapters:    adapters,
		hub:         NewWSHub(),
		log:         logging.GetDefault().Component("rpc"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRPC)
	mux.HandleFunc("/ws", s.hub.HandleUpgrade)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	coordinator.OnEvent(func(event swap.Event) {
		s.hub.Broadcast(event)
	})
	return s
}

// Start runs the hub and the HTTP listener until the context ends.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info("api listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, Response{JSONRPC: "2.0", Error: &Error{codeParseError, "parse error"}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeResponse(w, Response{JSONRPC: "2.0", ID: req.ID,
			Error: &Error{codeInvalidRequest, "invalid request"}})
		return
	}

	result, rpcErr := s.dispatch(r.Context(), &req)
	resp := Response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
	if rpcErr != nil {
		s.log.Debug("request failed", "method", req.Method, "code", rpcErr.Code, "error", rpcErr.Message)
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, *Error) {
	switch req.Method {
	case "swap_initiate":
		return s.swapInitiate(ctx, req.Params)
	case "swap_lockDestination":
		return s.swapLockDestination(ctx, req.Params)
	case "swap_claim":
		return s.swapClaim(ctx, req.Params)
	case "swap_abort":
		return s.swapAbort(ctx, req.Params)
	case "swap_get":
		return s.swapGet(req.Params)
	case "swap_list":
		return s.swapList()
	case "chain_status":
		return s.chainStatus(ctx)
	default:
		return nil, &Error{codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method)}
	}
}

type initiateParams struct {
	SourceChain          string `json:"source_chain"`
	DestinationChain     string `json:"destination_chain"`
	SourceSender         string `json:"source_sender"`
	SourceRecipient      string `json:"source_recipient"`
	DestinationSender    string `json:"destination_sender"`
	DestinationRecipient string `json:"destination_recipient"`
	SourceAmount         uint64 `json:"source_amount"`
	DestinationAmount    uint64 `json:"destination_amount"`
	HashAlgo             string `json:"hash_algo,omitempty"`
}

func (s *Server) swapInitiate(ctx context.Context, raw json.RawMessage) (any, *Error) {
	var p initiateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{codeInvalidParams, err.Error()}
	}
	if p.SourceChain == "" || p.DestinationChain == "" {
		return nil, &Error{codeInvalidParams, "source_chain and destination_chain are required"}
	}
	if p.SourceAmount == 0 || p.DestinationAmount == 0 {
		return nil, &Error{codeInvalidParams, "amounts must be positive"}
	}

	session, err := s.coordinator.Initiate(ctx, swap.InitiateParams{
		SourceChain:          p.SourceChain,
		DestinationChain:     p.DestinationChain,
		SourceSender:         p.SourceSender,
		SourceRecipient:      p.SourceRecipient,
		DestinationSender:    p.DestinationSender,
		DestinationRecipient: p.DestinationRecipient,
		SourceAmount:         p.SourceAmount,
		DestinationAmount:    p.DestinationAmount,
		HashAlgo:             htlc.HashAlgo(p.HashAlgo),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return sessionView(session), nil
}

type sessionIDParams struct {
	SessionID string `json:"session_id"`
}

func (s *Server) sessionCall(raw json.RawMessage,
	call func(id string) (*swap.Session, error)) (any, *Error) {

	var p sessionIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{codeInvalidParams, err.Error()}
	}
	if p.SessionID == "" {
		return nil, &Error{codeInvalidParams, "session_id is required"}
	}
	session, err := call(p.SessionID)
	if err != nil {
		return nil, mapError(err)
	}
	return sessionView(session), nil
}

func (s *Server) swapLockDestination(ctx context.Context, raw json.RawMessage) (any, *Error) {
	return s.sessionCall(raw, func(id string) (*swap.Session, error) {
		return s.coordinator.LockDestination(ctx, id)
	})
}

func (s *Server) swapClaim(ctx context.Context, raw json.RawMessage) (any, *Error) {
	return s.sessionCall(raw, func(id string) (*swap.Session, error) {
		return s.coordinator.RevealAndClaim(ctx, id)
	})
}

func (s *Server) swapAbort(ctx context.Context, raw json.RawMessage) (any, *Error) {
	return s.sessionCall(raw, func(id string) (*swap.Session, error) {
		return s.coordinator.Abort(ctx, id)
	})
}

func (s *Server) swapGet(raw json.RawMessage) (any, *Error) {
	return s.sessionCall(raw, func(id string) (*swap.Session, error) {
		return s.coordinator.GetSession(id)
	})
}

func (s *Server) swapList() (any, *Error) {
	sessions := s.coordinator.ListSessions()
	views := make([]map[string]any, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionView(session))
	}
	return views, nil
}

func (s *Server) chainStatus(ctx context.Context) (any, *Error) {
	statusCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out := make(map[string]any, len(s.adapters))
	for symbol, a := range s.adapters {
		entry := map[string]any{
			"name": a.Chain().Name,
			"type": string(a.Chain().Type),
		}
		if now, err := a.Now(statusCtx); err != nil {
			entry["available"] = false
			entry["error"] = err.Error()
		} else {
			entry["available"] = true
			entry["chain_time"] = now.Format(time.RFC3339)
		}
		out[symbol] = entry
	}
	return out, nil
}

// sessionView shapes a session for the wire. The secret never leaves
// the daemon through the API.
func sessionView(s *swap.Session) map[string]any {
	return map[string]any{
		"id":          s.ID,
		"state":       string(s.State),
		"hash_algo":   string(s.HashAlgo),
		"hashlock":    hex.EncodeToString(s.Hashlock[:]),
		"source":      recordView(s.Source),
		"destination": recordView(s.Destination),
		"created_at":  s.CreatedAt.Format(time.RFC3339),
		"updated_at":  s.UpdatedAt.Format(time.RFC3339),
	}
}

func recordView(r htlc.Record) map[string]any {
	return map[string]any{
		"chain":     r.Chain,
		"lock_id":   r.ID,
		"sender":    r.Sender,
		"recipient": r.Recipient,
		"amount":    r.Amount,
		"timelock":  r.Timelock.Format(time.RFC3339),
		"status":    string(r.Status),
		"create_tx": r.CreateTxID,
		"claim_tx":  r.ClaimTxID,
		"refund_tx": r.RefundTxID,
	}
}

// mapError keeps the lock error taxonomy visible to API clients while
// collapsing everything else to a generic server error.
func mapError(err error) *Error {
	switch {
	case errors.Is(err, swap.ErrSessionNotFound),
		errors.Is(err, htlc.ErrLockNotFound):
		return &Error{codeInvalidParams, err.Error()}
	case errors.Is(err, swap.ErrInvalidSessionState),
		errors.Is(err, swap.ErrHashAlgoUnsupported),
		errors.Is(err, swap.ErrAdapterNotFound),
		errors.Is(err, swap.ErrNotConfirmed),
		errors.Is(err, swap.ErrUnsafeToClaim),
		errors.Is(err, swap.ErrNothingToRefund),
		errors.Is(err, htlc.ErrInvalidTimelock),
		errors.Is(err, htlc.ErrHashAlgoMismatch),
		errors.Is(err, htlc.ErrInsufficientFunds),
		errors.Is(err, htlc.ErrSecretMismatch),
		errors.Is(err, htlc.ErrAlreadyClaimed),
		errors.Is(err, htlc.ErrAlreadyRefunded),
		errors.Is(err, htlc.ErrTimelockNotExpired),
		errors.Is(err, htlc.ErrTimelockExpired),
		errors.Is(err, htlc.ErrNotYetFunded):
		return &Error{codeServerError, err.Error()}
	case errors.Is(err, adapter.ErrChainUnavailable):
		return &Error{codeServerError, err.Error()}
	default:
		return &Error{codeServerError, "internal error"}
	}
}
