package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter/mock"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/config"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/swap"
)

type rpcEnv struct {
	server *httptest.Server
	source *mock.Adapter
	dest   *mock.Adapter
}

func newRPCEnv(t *testing.T) *rpcEnv {
	t.Helper()

	eth, _ := chain.Get("ETH", chain.Testnet)
	algo, _ := chain.Get("ALGO", chain.Testnet)
	source := mock.New(eth)
	dest := mock.New(algo)

	adapters := map[string]adapter.ChainAdapter{"ETH": source, "ALGO": dest}
	coordinator := swap.NewCoordinator(config.DefaultSwapConfig(), nil, adapters)
	s := NewServer("127.0.0.1:0", coordinator, adapters)

	server := httptest.NewServer(http.HandlerFunc(s.handleRPC))
	t.Cleanup(server.Close)
	return &rpcEnv{server: server, source: source, dest: dest}
}

func (env *rpcEnv) call(t *testing.T, method string, params any) Response {
	t.Helper()

	body := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		body["params"] = params
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(env.server.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func initiateParamsJSON() map[string]any {
	return map[string]any{
		"source_chain":          "ETH",
		"destination_chain":     "ALGO",
		"source_sender":         "alice-eth",
		"source_recipient":      "bob-eth",
		"destination_sender":    "bob-algo",
		"destination_recipient": "alice-algo",
		"source_amount":         100,
		"destination_amount":    50,
	}
}

func resultMap(t *testing.T, resp Response) map[string]any {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("rpc error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	m, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want object", resp.Result)
	}
	return m
}

func TestSwapLifecycleOverRPC(t *testing.T) {
	env := newRPCEnv(t)
	env.source.Fund("alice-eth", 100)
	env.dest.Fund("bob-algo", 50)

	result := resultMap(t, env.call(t, "swap_initiate", initiateParamsJSON()))
	if result["state"] != "source_locked" {
		t.Fatalf("state = %v, want source_locked", result["state"])
	}
	if _, leaked := result["secret"]; leaked {
		t.Fatal("secret must not appear in API responses")
	}
	sessionID := result["id"].(string)
	sourceLock := result["source"].(map[string]any)["lock_id"].(string)

	env.source.Confirm(sourceLock, 3)

	result = resultMap(t, env.call(t, "swap_lockDestination", map[string]any{"session_id": sessionID}))
	if result["state"] != "destination_locked" {
		t.Fatalf("state = %v, want destination_locked", result["state"])
	}

	result = resultMap(t, env.call(t, "swap_claim", map[string]any{"session_id": sessionID}))
	if result["state"] != "both_claimed" {
		t.Fatalf("state = %v, want both_claimed", result["state"])
	}

	if got := env.dest.Balance("alice-algo"); got != 50 {
		t.Errorf("alice-algo balance = %d, want 50", got)
	}

	result = resultMap(t, env.call(t, "swap_get", map[string]any{"session_id": sessionID}))
	if result["state"] != "both_claimed" {
		t.Errorf("swap_get state = %v", result["state"])
	}

	listResp := env.call(t, "swap_list", nil)
	list, ok := listResp.Result.([]any)
	if !ok || len(list) != 1 {
		t.Errorf("swap_list = %v, want one session", listResp.Result)
	}
}

func TestInitiateValidation(t *testing.T) {
	env := newRPCEnv(t)

	tests := []struct {
		name     string
		mutate   func(map[string]any)
		wantCode int
	}{
		{"missing chains", func(p map[string]any) { p["source_chain"] = "" }, codeInvalidParams},
		{"zero amount", func(p map[string]any) { p["source_amount"] = 0 }, codeInvalidParams},
		{"unfunded sender", func(p map[string]any) {}, codeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := initiateParamsJSON()
			tt.mutate(params)
			resp := env.call(t, "swap_initiate", params)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %d", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestUnknownMethod(t *testing.T) {
	env := newRPCEnv(t)
	resp := env.call(t, "swap_frobnicate", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Errorf("error = %+v, want method-not-found", resp.Error)
	}
}

func TestParseError(t *testing.T) {
	env := newRPCEnv(t)

	resp, err := http.Post(env.server.URL, "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Error == nil || out.Error.Code != codeParseError {
		t.Errorf("error = %+v, want parse error", out.Error)
	}
}

func TestSessionNotFound(t *testing.T) {
	env := newRPCEnv(t)
	resp := env.call(t, "swap_get", map[string]any{"session_id": "nope"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("error = %+v, want invalid-params", resp.Error)
	}
}

func TestChainStatus(t *testing.T) {
	env := newRPCEnv(t)

	result := resultMap(t, env.call(t, "chain_status", nil))
	for _, symbol := range []string{"ETH", "ALGO"} {
		entry, ok := result[symbol].(map[string]any)
		if !ok {
			t.Fatalf("chain_status missing %s", symbol)
		}
		if entry["available"] != true {
			t.Errorf("%s available = %v", symbol, entry["available"])
		}
	}
}
