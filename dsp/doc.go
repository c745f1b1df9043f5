// SPDX-License-Identifier: EPL-2.0

// Package dsp implements processing units and the graph that connects them.
//
// A Unit has a Kind from a closed set (mixer, fader, FFT, low-pass,
// high-pass, echo, oscillator, custom), a table of typed parameters, and a
// per-kind transform. Parameter values outside their declared range are
// clamped, never rejected:
//
//	f := dsp.NewFader()
//	f.SetFloat(dsp.FaderGain, 42) // stored as 10 dB
//
// Units live in a Graph, a directed acyclic graph in which every edge
// carries a mix level. A unit's input is the sum of its edges' outputs,
// each scaled by its mix, plus an optional external feed; the kind's
// transform is applied to that sum. Connect rejects edges that would close
// a loop with ErrCycle and leaves the graph untouched.
//
// # Control and render sides
//
// Graph methods that change structure or parameters only touch control
// state. Sync copies that state to the render side (rebuilding the cached
// topological order when the structure changed), Run processes one block,
// and Publish copies readouts such as FFT spectra back:
//
//	g := dsp.NewGraph(48000, 2, 1024)
//	osc, _ := g.Add(dsp.NewOscillator())
//	out, _ := g.Add(dsp.NewFader())
//	g.Connect(out, osc, 1)
//	block, _ := g.Process(1024, out)
//
// A caller running Run on another goroutine serializes the control calls
// with Sync and Publish, and nothing else.
package dsp
