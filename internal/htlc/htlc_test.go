package htlc

import (
	"testing"
	"time"
)

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusCreated, false},
		{StatusClaimed, true},
		{StatusRefunded, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateTimelock(t *testing.T) {
	now := time.Now()
	margin := 15 * time.Minute

	tests := []struct {
		name     string
		timelock time.Time
		wantErr  bool
	}{
		{"well in future", now.Add(24 * time.Hour), false},
		{"just past margin", now.Add(margin + time.Second), false},
		{"inside margin", now.Add(margin - time.Second), true},
		{"exactly at margin", now.Add(margin), true},
		{"in the past", now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimelock(tt.timelock, now, margin)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTimelock() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
