package models_test

import (
	"testing"

	"streamvault/internal/models"
)

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		name          string
		current, total float64
		wantProgress  float64
		wantCompleted bool
	}{
		{"midway", 50, 100, 0.5, false},
		{"at threshold", 95, 100, 0.95, true},
		{"just under threshold", 94.5, 100, 0.945, false},
		{"overshoot clamps to 1", 120, 100, 1, true},
		{"negative clamps to 0", -5, 100, 0, false},
		{"zero total avoids divide by zero", 10, 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			progress, completed := models.ComputeProgress(tc.current, tc.total)
			if progress != tc.wantProgress {
				t.Errorf("progress = %v, want %v", progress, tc.wantProgress)
			}
			if completed != tc.wantCompleted {
				t.Errorf("completed = %v, want %v", completed, tc.wantCompleted)
			}
		})
	}
}
