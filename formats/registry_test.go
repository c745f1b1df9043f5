// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"slices"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, key := range []string{"wav", ".WAV", "mp3", ".ogg", "aiff", "aif", ".flac"} {
		if _, ok := reg.Get(key); !ok {
			t.Errorf("no decoder for %q", key)
		}
	}

	got := reg.Formats()
	if !slices.IsSorted(got) {
		t.Errorf("Formats() not sorted: %v", got)
	}
	if len(got) != 8 {
		t.Errorf("Formats() = %v, want 8 keys", got)
	}
}
