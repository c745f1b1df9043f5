// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	// ErrStructural: the call would break the DSP graph or the group tree.
	// Nothing was changed.
	ErrStructural = errors.New("structural error")
	// ErrResource: a pool, queue, buffer or decoder could not serve the call.
	ErrResource = errors.New("resource error")
	// ErrInvalidState: the system is not in a state that allows the call.
	ErrInvalidState = errors.New("invalid system state")
	// ErrInvalidHandle: the channel, group, DSP or sound is gone.
	ErrInvalidHandle = errors.New("invalid handle")
)

var (
	ErrGroupCycle  = fmt.Errorf("%w: group would become its own ancestor", ErrStructural)
	ErrMasterGroup = fmt.Errorf("%w: not allowed on the master group", ErrStructural)
	ErrBuiltinDSP  = fmt.Errorf("%w: built-in fader cannot be moved or released", ErrStructural)
	ErrDSPInUse    = fmt.Errorf("%w: DSP is already part of a chain", ErrStructural)
	ErrDSPIndex    = fmt.Errorf("%w: DSP index out of range", ErrStructural)

	ErrChannelPoolExhausted = fmt.Errorf("%w: channel pool exhausted", ErrResource)
	ErrQueueFull            = fmt.Errorf("%w: command queue full", ErrResource)
	ErrDecode               = fmt.Errorf("%w: decode failed", ErrResource)
	ErrSoundInUse           = fmt.Errorf("%w: sound is still playing", ErrResource)
	ErrStreamInUse          = fmt.Errorf("%w: stream is already playing on another channel", ErrResource)
	ErrGeometryNotFound     = fmt.Errorf("%w: geometry is not registered", ErrResource)
	ErrUnknownFormat        = fmt.Errorf("%w: no decoder for format", ErrResource)
	ErrBufferSize           = fmt.Errorf("%w: output buffer is smaller than frames times channels", ErrResource)

	ErrNotInitialized     = fmt.Errorf("%w: system is not initialized", ErrInvalidState)
	ErrAlreadyInitialized = fmt.Errorf("%w: system is already initialized", ErrInvalidState)
	ErrReleased           = fmt.Errorf("%w: system was released", ErrInvalidState)
	ErrDSPLocked          = fmt.Errorf("%w: DSP lock is held", ErrInvalidState)
)

// structural tags a dsp package error with ErrStructural.
func structural(err error) error {
	return fmt.Errorf("%w: %w", ErrStructural, err)
}
