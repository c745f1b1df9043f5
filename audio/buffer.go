// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Buffer is a fully decoded, memory-resident source. It is safe to read
// through several Cursors at once because the sample data is never mutated
// after ReadAll returns.
type Buffer struct {
	Data     []float32
	Rate     int
	NumChans int
	Format   SampleFormat
}

// ReadAll decodes src to the end into a Buffer and closes src.
func ReadAll(src Source) (*Buffer, error) {
	defer src.Close()

	chans := src.Channels()
	if chans < 1 {
		return nil, ErrInvalidDstSize
	}

	hint := FramesOf(src)
	var data []float32
	if hint > 0 {
		data = make([]float32, 0, int(hint)*chans)
	}

	size := src.BufSize()
	if size < chans {
		size = 4096
	}
	size -= size % chans
	chunk := make([]float32, size)

	for {
		n, err := src.ReadSamples(chunk)
		data = append(data, chunk[:n]...)

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		if n == 0 {
			// a resident load must not spin on an empty streaming source
			return nil, fmt.Errorf("%w", io.ErrNoProgress)
		}
	}

	data = data[:len(data)-len(data)%chans]

	return &Buffer{
		Data:     data,
		Rate:     src.SampleRate(),
		NumChans: chans,
		Format:   FormatOf(src),
	}, nil
}

// Len returns the length in frames.
func (b *Buffer) Len() int64 { return int64(len(b.Data) / b.NumChans) }

// NewCursor returns an independent reader over the buffer.
func (b *Buffer) NewCursor() *Cursor {
	return &Cursor{buf: b, loops: -1}
}

// Cursor reads a Buffer from an independent position. It implements
// Source, Seeker and Lengther and never blocks.
type Cursor struct {
	buf *Buffer
	pos int64 // in samples

	// loop region in frames; loopEnd <= loopStart disables looping
	loopStart int64
	loopEnd   int64
	// wraps left before the loop region is abandoned; -1 loops forever
	loops int
}

func (c *Cursor) SampleRate() int            { return c.buf.Rate }
func (c *Cursor) Channels() int              { return c.buf.NumChans }
func (c *Cursor) BufSize() int               { return 4096 }
func (c *Cursor) Close() error               { return nil }
func (c *Cursor) Frames() int64              { return c.buf.Len() }
func (c *Cursor) SampleFormat() SampleFormat { return c.buf.Format }

// Position returns the current frame.
func (c *Cursor) Position() int64 { return c.pos / int64(c.buf.NumChans) }

// SetLoop makes the cursor wrap from end back to start (both in frames,
// end exclusive). Passing end <= start disables looping.
func (c *Cursor) SetLoop(start, end int64) {
	end = min(end, c.buf.Len())
	if start < 0 || start >= end {
		start, end = 0, 0
	}
	c.loopStart, c.loopEnd = start, end
}

// SetLoopCount limits how many more times the cursor wraps. After the last
// wrap playback continues past the loop end to the end of the buffer.
// A negative count loops forever.
func (c *Cursor) SetLoopCount(n int) {
	if n < 0 {
		n = -1
	}
	c.loops = n
}

// LoopCount returns the wraps left, or -1 for endless looping.
func (c *Cursor) LoopCount() int { return c.loops }

func (c *Cursor) SeekFrame(frame int64) error {
	if frame < 0 || frame > c.buf.Len() {
		return ErrSeekRange
	}
	c.pos = frame * int64(c.buf.NumChans)
	return nil
}

func (c *Cursor) ReadSamples(dst []float32) (int, error) {
	chans := int64(c.buf.NumChans)
	written := 0

	for written < len(dst) {
		end := int64(len(c.buf.Data))
		looping := c.loopEnd > c.loopStart
		if looping {
			end = min(end, c.loopEnd*chans)
		}

		if c.pos >= end {
			if !looping {
				break
			}
			if c.loops == 0 {
				c.loopStart, c.loopEnd = 0, 0
				continue
			}
			if c.loops > 0 {
				c.loops--
			}
			c.pos = c.loopStart * chans
			continue
		}

		n := copy(dst[written:], c.buf.Data[c.pos:end])
		written += n
		c.pos += int64(n)
	}

	if written == 0 && len(dst) > 0 {
		return 0, io.EOF
	}
	return written, nil
}
