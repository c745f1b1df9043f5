// SPDX-License-Identifier: EPL-2.0

package dsp

import "errors"

var (
	// ErrCycle is returned by Connect when the new edge would close a loop.
	ErrCycle = errors.New("connection would create a cycle")

	ErrNotConnected     = errors.New("units are not connected")
	ErrAlreadyConnected = errors.New("units are already connected")
	ErrUnknownUnit      = errors.New("unit is not part of this graph")
	ErrUnitInUse        = errors.New("unit already belongs to a graph")

	ErrParamIndex = errors.New("parameter index out of range")
	ErrParamType  = errors.New("parameter has a different type")

	ErrNotPrepared = errors.New("unit has no format; add it to a graph or call Prepare")
	ErrCustomKind  = errors.New("custom units are created with NewCustom")
)
