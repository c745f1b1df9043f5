// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{"zero", 0, 0},
		{"full scale", 1, math.MaxInt16},
		{"negative full scale", -1, -math.MaxInt16},
		{"half", 0.5, 16383},
		{"clamps above", 1.5, math.MaxInt16},
		{"clamps below", -100, -math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloat32ToPCM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bitDepth int
		input    float32
		want     int
	}{
		{8, 1, 127},
		{16, -1, -32767},
		{24, 1, 8388607},
		{24, 2, 8388607},
		{32, 0, 0},
	}

	for _, tt := range tests {
		if got := Float32ToPCM(tt.input, tt.bitDepth); got != tt.want {
			t.Errorf("Float32ToPCM(%v, %d) = %d, want %d", tt.input, tt.bitDepth, got, tt.want)
		}
	}
}

func TestPCMScale_UnknownDepth(t *testing.T) {
	t.Parallel()

	if got := PCMScale(12); got != 32768 {
		t.Errorf("PCMScale(12) = %v, want 32768", got)
	}
}
