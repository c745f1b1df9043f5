// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"encoding/binary"
	"math"

	"github.com/ik5/audmix/arena"
)

// Graph is a DAG of units sharing one format. Structural calls (Add,
// Remove, Connect, Disconnect, SetMix) and parameter setters are control
// side; Sync copies them to the render side, Run processes a block, and
// Publish copies readouts back. Control calls and Sync/Publish must be
// serialized by the caller; Run may overlap control calls.
type Graph struct {
	units      *arena.Arena[*Unit]
	sampleRate int
	channels   int
	maxFrames  int

	// control-side topological order, inputs before outputs
	sorted []*Unit
	dirty  bool
	mixed  bool
	epoch  uint64

	// render-side copy of sorted
	plan []*Unit
}

func NewGraph(sampleRate, channels, maxFrames int) *Graph {
	return &Graph{
		units:      arena.New[*Unit](16),
		sampleRate: max(sampleRate, 1),
		channels:   max(channels, 1),
		maxFrames:  max(maxFrames, 1),
	}
}

// Format returns the sample rate, channel count and block size every unit
// in the graph is prepared with.
func (g *Graph) Format() (sampleRate, channels, maxFrames int) {
	return g.sampleRate, g.channels, g.maxFrames
}

func (g *Graph) Len() int { return g.units.Len() }

// Add prepares u with the graph's format and inserts it unconnected.
func (g *Graph) Add(u *Unit) (arena.Handle, error) {
	if u.graph != nil {
		return arena.Handle{}, ErrUnitInUse
	}

	h, err := g.units.Insert(u)
	if err != nil {
		return arena.Handle{}, err
	}
	u.graph = g
	u.handle = h
	u.Prepare(g.sampleRate, g.channels, g.maxFrames)
	g.dirty = true

	return h, nil
}

// Unit resolves h.
func (g *Graph) Unit(h arena.Handle) (*Unit, bool) {
	u, ok := g.units.Get(h)
	if !ok {
		return nil, false
	}
	return *u, true
}

// Remove drops h and every edge touching it.
func (g *Graph) Remove(h arena.Handle) error {
	u, ok := g.Unit(h)
	if !ok {
		return ErrUnknownUnit
	}

	g.units.Each(func(_ arena.Handle, other **Unit) {
		(*other).inputs = dropInput((*other).inputs, h)
	})
	u.inputs = nil
	u.graph = nil
	u.handle = arena.Handle{}
	g.units.Remove(h)
	g.dirty = true

	return nil
}

func dropInput(in []Connection, h arena.Handle) []Connection {
	for i := range in {
		if in[i].Input == h {
			return append(in[:i], in[i+1:]...)
		}
	}
	return in
}

// Connect makes input feed output at the given mix level. An edge that
// would create a cycle is rejected with ErrCycle and the graph is left as
// it was.
func (g *Graph) Connect(output, input arena.Handle, mix float32) error {
	out, ok := g.Unit(output)
	if !ok {
		return ErrUnknownUnit
	}
	if _, ok := g.Unit(input); !ok {
		return ErrUnknownUnit
	}
	if out.connection(input) >= 0 {
		return ErrAlreadyConnected
	}
	if g.WouldCycle(output, input) {
		return ErrCycle
	}

	out.inputs = append(out.inputs, Connection{Input: input, Mix: mix})
	g.dirty = true
	return nil
}

// Disconnect removes the edge input -> output.
func (g *Graph) Disconnect(output, input arena.Handle) error {
	out, ok := g.Unit(output)
	if !ok {
		return ErrUnknownUnit
	}
	if out.connection(input) < 0 {
		return ErrNotConnected
	}

	out.inputs = dropInput(out.inputs, input)
	g.dirty = true
	return nil
}

// SetMix changes the level of an existing edge.
func (g *Graph) SetMix(output, input arena.Handle, mix float32) error {
	out, ok := g.Unit(output)
	if !ok {
		return ErrUnknownUnit
	}
	i := out.connection(input)
	if i < 0 {
		return ErrNotConnected
	}

	out.inputs[i].Mix = mix
	g.mixed = true
	return nil
}

// Inputs returns a copy of h's input list in connection order.
func (g *Graph) Inputs(h arena.Handle) []Connection {
	u, ok := g.Unit(h)
	if !ok {
		return nil
	}
	return append([]Connection(nil), u.inputs...)
}

// Outputs lists the units h feeds.
func (g *Graph) Outputs(h arena.Handle) []arena.Handle {
	var outs []arena.Handle
	g.units.Each(func(oh arena.Handle, u **Unit) {
		if (*u).connection(h) >= 0 {
			outs = append(outs, oh)
		}
	})
	return outs
}

func (u *Unit) connection(input arena.Handle) int {
	for i := range u.inputs {
		if u.inputs[i].Input == input {
			return i
		}
	}
	return -1
}

// WouldCycle reports whether connecting input -> output would close a
// loop, that is whether output already feeds input.
func (g *Graph) WouldCycle(output, input arena.Handle) bool {
	if output == input {
		return true
	}
	target, ok := g.Unit(output)
	if !ok {
		return false
	}
	from, ok := g.Unit(input)
	if !ok {
		return false
	}

	g.epoch++
	return g.reaches(from, target)
}

// reaches walks the inputs of u looking for target.
func (g *Graph) reaches(u, target *Unit) bool {
	if u == target {
		return true
	}
	if u.mark == g.epoch {
		return false
	}
	u.mark = g.epoch

	for _, c := range u.inputs {
		in, ok := g.Unit(c.Input)
		if ok && g.reaches(in, target) {
			return true
		}
	}
	return false
}

// Order returns the cached topological order, inputs before outputs.
func (g *Graph) Order() []arena.Handle {
	g.resolve()
	hs := make([]arena.Handle, len(g.sorted))
	for i, u := range g.sorted {
		hs[i] = u.handle
	}
	return hs
}

// resolve recomputes the order after a structural change.
func (g *Graph) resolve() {
	if !g.dirty {
		return
	}

	g.sorted = g.sorted[:0]
	g.epoch++
	g.units.Each(func(_ arena.Handle, u **Unit) {
		g.visit(*u)
	})
	g.dirty = false
	g.mixed = true
}

func (g *Graph) visit(u *Unit) {
	if u.mark == g.epoch {
		return
	}
	u.mark = g.epoch

	for _, c := range u.inputs {
		if in, ok := g.Unit(c.Input); ok {
			g.visit(in)
		}
	}
	g.sorted = append(g.sorted, u)
}

// Sync publishes control-side state to the render side: the order and
// edges when they changed, and every unit's parameters and flags.
func (g *Graph) Sync() {
	g.resolve()

	if g.mixed {
		g.plan = append(g.plan[:0], g.sorted...)
		for _, u := range g.plan {
			u.rinputs = u.rinputs[:0]
			for _, c := range u.inputs {
				if in, ok := g.Unit(c.Input); ok {
					u.rinputs = append(u.rinputs, renderInput{unit: in, mix: c.Mix})
				}
			}
		}
		g.mixed = false
	}

	for _, u := range g.plan {
		u.sync()
	}
}

// Run processes one block of frames (at most the graph's block size) for
// every unit that root depends on and returns root's output. Suspended
// units, and inputs reachable only through them, are skipped and count as
// silence.
func (g *Graph) Run(frames int, root *Unit) []float32 {
	frames = min(frames, g.maxFrames)

	for _, u := range g.plan {
		u.live = false
	}
	if root != nil && !root.suspended {
		root.live = true
	}

	for i := len(g.plan) - 1; i >= 0; i-- {
		u := g.plan[i]
		if !u.live {
			continue
		}
		for _, in := range u.rinputs {
			if !in.unit.suspended {
				in.unit.live = true
			}
		}
	}

	for _, u := range g.plan {
		if u.live {
			u.render(frames)
		}
		u.fed = false
	}

	if root == nil {
		return nil
	}
	if !root.live {
		out := root.out[:frames*g.channels]
		clear(out)
		return out
	}
	return root.out[:frames*g.channels]
}

// Publish copies render-side readouts, such as FFT spectra, to the control
// side.
func (g *Graph) Publish() {
	for _, u := range g.plan {
		if p, ok := u.proc.(publisher); ok {
			p.publish(u)
		}
	}
}

// Process is Sync, Run and Publish in one call, for graphs driven from a
// single goroutine.
func (g *Graph) Process(frames int, root arena.Handle) ([]float32, error) {
	u, ok := g.Unit(root)
	if !ok {
		return nil, ErrUnknownUnit
	}
	g.Sync()
	out := g.Run(frames, u)
	g.Publish()
	return out, nil
}

// Snapshot encodes the graph's structure: every unit's handle, kind and
// flags, and its inputs with their mix levels. Two snapshots are equal
// exactly when the topologies are.
func (g *Graph) Snapshot() []byte {
	var b []byte
	g.units.Each(func(h arena.Handle, up **Unit) {
		u := *up
		b = appendHandle(b, h)
		b = append(b, byte(u.kind), boolByte(u.bypass), boolByte(u.active))
		b = binary.LittleEndian.AppendUint32(b, uint32(len(u.inputs)))
		for _, c := range u.inputs {
			b = appendHandle(b, c.Input)
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(c.Mix))
		}
	})
	return b
}

func appendHandle(b []byte, h arena.Handle) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Index()))
	return binary.LittleEndian.AppendUint32(b, h.Generation())
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
