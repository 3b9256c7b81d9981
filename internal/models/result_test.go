package models

import (
	"testing"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[Category]ProbeStatus
		want     TestStatus
	}{
		{
			name: "all success",
			statuses: map[Category]ProbeStatus{
				CategoryLatency: ProbeSuccess,
				CategoryJitter:  ProbeSuccess,
			},
			want: StatusCompleted,
		},
		{
			name: "mixed",
			statuses: map[Category]ProbeStatus{
				CategoryLatency:    ProbeSuccess,
				CategoryThroughput: ProbeFailed,
			},
			want: StatusPartial,
		},
		{
			name: "all failed",
			statuses: map[Category]ProbeStatus{
				CategoryLatency: ProbeFailed,
				CategoryDNS:     ProbeFailed,
			},
			want: StatusFailed,
		},
		{
			name:     "no categories attempted",
			statuses: map[Category]ProbeStatus{},
			want:     StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.statuses); got != tt.want {
				t.Errorf("DeriveStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetCategoryStatusFirstWriteWins(t *testing.T) {
	tr := NewTestResult("t-1")

	tr.SetCategoryStatus(CategoryLatency, ProbeFailed, "no echo replies")
	tr.SetCategoryStatus(CategoryLatency, ProbeSuccess, "")

	if got := tr.CategoryStatus[CategoryLatency]; got != ProbeFailed {
		t.Errorf("status = %q, want %q (first write must win)", got, ProbeFailed)
	}
	if got := tr.Errors[CategoryLatency]; got != "no echo replies" {
		t.Errorf("error = %q, want original message", got)
	}
}

func TestNewTestResultInitialState(t *testing.T) {
	tr := NewTestResult("t-2")

	if tr.Status != StatusRunning {
		t.Errorf("status = %q, want %q", tr.Status, StatusRunning)
	}
	if tr.CategoryStatus == nil || tr.Errors == nil {
		t.Fatal("maps must be initialized")
	}
	if len(tr.CategoryStatus) != 0 {
		t.Errorf("new result must have no category entries, got %v", tr.CategoryStatus)
	}
	if tr.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}

func TestFinalize(t *testing.T) {
	tr := NewTestResult("t-3")
	tr.SetCategoryStatus(CategoryLatency, ProbeSuccess, "")
	tr.SetCategoryStatus(CategoryThroughput, ProbeFailed, "no measurement server reachable")
	tr.Finalize()

	if tr.Status != StatusPartial {
		t.Errorf("status = %q, want %q", tr.Status, StatusPartial)
	}
}
