package model

import "testing"

func TestEventStatus_IsValid(t *testing.T) {
	tests := []struct {
		status EventStatus
		valid  bool
	}{
		{EventObserved, true},
		{EventUnobserved, true},
		{EventRemoved, true},
		{EventUnremoved, true},
		{EventSuspended, true},
		{EventResumed, true},
		{"done", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.status.IsValid(); got != tt.valid {
			t.Errorf("EventStatus(%q).IsValid() = %v, want %v", tt.status, got, tt.valid)
		}
	}
}

func TestEventStatus_Inverse(t *testing.T) {
	for s := range inverseEvents {
		if got := s.Inverse().Inverse(); got != s {
			t.Errorf("EventStatus(%q).Inverse().Inverse() = %q", s, got)
		}
	}
	if got := EventStatus("bogus").Inverse(); got != "" {
		t.Errorf("Inverse of unknown status = %q, want empty", got)
	}
}
