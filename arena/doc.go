// SPDX-License-Identifier: EPL-2.0

// Package arena stores values in reusable slots addressed by
// generation-counted handles.
//
// A Handle records the slot index and the generation the slot had when the
// value was inserted. Removing a value bumps the slot's generation, so any
// handle still pointing at the old value stops resolving instead of silently
// reaching whatever reuses the slot next.
//
//	a := arena.New[voice](64)
//	h, _ := a.Insert(voice{})
//	v, ok := a.Get(h) // ok until a.Remove(h)
package arena
