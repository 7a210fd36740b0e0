package evm

import (
	"errors"
	"testing"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

func TestParseHTLCABI(t *testing.T) {
	parsed, err := parseHTLCABI()
	if err != nil {
		t.Fatalf("parseHTLCABI() error = %v", err)
	}

	for _, method := range []string{"createHTLC", "claim", "refund", "getHTLC"} {
		if _, ok := parsed.Methods[method]; !ok {
			t.Errorf("abi missing method %s", method)
		}
	}
	for _, event := range []string{"HTLCCreated", "HTLCClaimed", "HTLCRefunded"} {
		if _, ok := parsed.Events[event]; !ok {
			t.Errorf("abi missing event %s", event)
		}
	}
}

func TestMapRevert(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"invalid secret", errors.New("execution reverted: invalid secret"), htlc.ErrSecretMismatch},
		{"already claimed", errors.New("execution reverted: already claimed"), htlc.ErrAlreadyClaimed},
		{"already refunded", errors.New("execution reverted: already refunded"), htlc.ErrAlreadyRefunded},
		{"not expired", errors.New("execution reverted: timelock not expired"), htlc.ErrTimelockNotExpired},
		{"expired", errors.New("execution reverted: timelock expired"), htlc.ErrTimelockExpired},
		{"unknown lock", errors.New("execution reverted: unknown lock"), htlc.ErrLockNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapRevert(tt.in); !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("mapRevert() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapRevertPassesThroughNetworkErrors(t *testing.T) {
	in := errors.New("dial tcp: connection refused")
	if got := mapRevert(in); got != in {
		t.Errorf("mapRevert() = %v, want original error", got)
	}
}
