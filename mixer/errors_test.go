// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	classes := []error{ErrStructural, ErrResource, ErrInvalidState, ErrInvalidHandle}

	tests := []struct {
		err   error
		class error
	}{
		{ErrGroupCycle, ErrStructural},
		{ErrMasterGroup, ErrStructural},
		{ErrBuiltinDSP, ErrStructural},
		{ErrDSPInUse, ErrStructural},
		{ErrDSPIndex, ErrStructural},
		{ErrChannelPoolExhausted, ErrResource},
		{ErrQueueFull, ErrResource},
		{ErrDecode, ErrResource},
		{ErrSoundInUse, ErrResource},
		{ErrStreamInUse, ErrResource},
		{ErrGeometryNotFound, ErrResource},
		{ErrUnknownFormat, ErrResource},
		{ErrBufferSize, ErrResource},
		{ErrNotInitialized, ErrInvalidState},
		{ErrAlreadyInitialized, ErrInvalidState},
		{ErrReleased, ErrInvalidState},
		{ErrDSPLocked, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()

			for _, c := range classes {
				if got, want := errors.Is(tt.err, c), c == tt.class; got != want {
					t.Errorf("errors.Is(%v) = %v, want %v", c, got, want)
				}
			}
		})
	}
}
