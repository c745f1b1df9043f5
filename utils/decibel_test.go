// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestDbToLinear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		db   float64
		want float64
	}{
		{0, 1},
		{-6.0206, 0.5},
		{20, 10},
		{-80, 0},
		{-200, 0},
	}

	for _, tt := range tests {
		if got := DbToLinear(tt.db); math.Abs(got-tt.want) > 1e-4 {
			t.Errorf("DbToLinear(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestLinearToDb_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, db := range []float64{-60, -12, -3, 0, 6, 10} {
		if got := LinearToDb(DbToLinear(db)); math.Abs(got-db) > 1e-9 {
			t.Errorf("round trip %v dB = %v", db, got)
		}
	}

	if got := LinearToDb(0); got != MinDecibels {
		t.Errorf("LinearToDb(0) = %v, want %v", got, MinDecibels)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	if got := Clamp(11.0, -80.0, 10.0); got != 10 {
		t.Errorf("Clamp(11) = %v, want 10", got)
	}
	if got := Clamp(-81.0, -80.0, 10.0); got != -80 {
		t.Errorf("Clamp(-81) = %v, want -80", got)
	}
	if got := Clamp(64, 1, 4093); got != 64 {
		t.Errorf("Clamp(64) = %v, want 64", got)
	}
}
