// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
)

func TestReadAll(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(22050, 2, 5000)
	buf, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	if buf.Len() != 5000 {
		t.Errorf("Len() = %d, want 5000", buf.Len())
	}
	if buf.Rate != 22050 || buf.NumChans != 2 {
		t.Errorf("format = %d Hz / %d ch, want 22050 / 2", buf.Rate, buf.NumChans)
	}
	if !src.Closed() {
		t.Error("ReadAll did not close the source")
	}
}

func TestReadAll_Error(t *testing.T) {
	t.Parallel()

	if _, err := ReadAll(audiotest.NewFailingSource(8000, 1, 100, 10, 1)); err == nil {
		t.Error("ReadAll() error = nil, want decode failure")
	}
}

func TestCursor_IndependentReaders(t *testing.T) {
	t.Parallel()

	buf, err := ReadAll(audiotest.NewRampSource(8000, 1, 10))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	a, b := buf.NewCursor(), buf.NewCursor()
	tmp := make([]float32, 4)
	if _, err := a.ReadSamples(tmp); err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}

	if a.Position() != 4 || b.Position() != 0 {
		t.Errorf("positions = %d, %d; want 4, 0", a.Position(), b.Position())
	}
}

func TestCursor_Loop(t *testing.T) {
	t.Parallel()

	buf, err := ReadAll(audiotest.NewRampSource(8000, 1, 4))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	c := buf.NewCursor()
	c.SetLoop(2, 4)

	out := make([]float32, 8)
	n, err := c.ReadSamples(out)
	if err != nil || n != 8 {
		t.Fatalf("ReadSamples() = (%d, %v), want (8, nil)", n, err)
	}

	want := []float32{0, 0.25, 0.5, 0.75, 0.5, 0.75, 0.5, 0.75}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestCursor_SeekAndEOF(t *testing.T) {
	t.Parallel()

	buf, err := ReadAll(audiotest.NewRampSource(8000, 1, 4))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	c := buf.NewCursor()
	if err := c.SeekFrame(5); err != ErrSeekRange {
		t.Errorf("SeekFrame(5) error = %v, want ErrSeekRange", err)
	}
	if err := c.SeekFrame(4); err != nil {
		t.Fatalf("SeekFrame(4) error = %v", err)
	}
	if _, err := c.ReadSamples(make([]float32, 2)); err != io.EOF {
		t.Errorf("ReadSamples() at end error = %v, want EOF", err)
	}
}

func TestCursor_LoopCount(t *testing.T) {
	t.Parallel()

	buf, err := ReadAll(audiotest.NewRampSource(8000, 1, 4))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	c := buf.NewCursor()
	c.SetLoop(0, 2)
	c.SetLoopCount(1)

	out := make([]float32, 8)
	n, err := c.ReadSamples(out)
	if err != nil || n != 6 {
		t.Fatalf("ReadSamples() = (%d, %v), want (6, nil)", n, err)
	}

	// one wrap, then on to the end of the buffer
	want := []float32{0, 0.25, 0, 0.25, 0.5, 0.75}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	if got := c.LoopCount(); got != 0 {
		t.Errorf("LoopCount() = %d, want 0", got)
	}
}
