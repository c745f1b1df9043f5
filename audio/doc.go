// SPDX-License-Identifier: EPL-2.0

// Package audio provides the decoder-facing building blocks of the mixer.
//
// This package contains:
//   - Source, Seeker, Lengther and Formatter interfaces for audio input
//   - Registry of format decoders
//   - Resampler, a variable-ratio cubic resampler used for pitch and rate
//   - MonoMixer and DownmixMono for folding channels to mono
//   - Buffer and Cursor for memory-resident sounds
//
// # Source Interface
//
// Every decoder in formats/ returns a Source:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// ReadSamples returns io.EOF at the end of the stream. A streaming source
// that has nothing ready may return (0, nil); callers treat that as an
// underrun and pad with silence instead of blocking.
//
// # Resampling
//
// The Resampler consumes ratio source frames per output frame:
//
//	r := audio.NewResampler(src, 48000) // rate conversion only
//	r.SetRatio(r.Ratio() * 1.5)         // plus a pitch shift
//	n, err := r.ReadSamples(buf)
//
// SeekFrame repositions both the source and the interpolation window, which
// is how a virtual channel resumes exactly where its clock says it should be.
//
// # Resident Sounds
//
// ReadAll decodes a whole source into a Buffer; each playing channel gets
// its own Cursor over the shared, immutable sample data:
//
//	buf, _ := audio.ReadAll(src)
//	cur := buf.NewCursor()
//	cur.SetLoop(0, buf.Len())
//
// # Sample Format
//
// Samples are float32 in [-1.0, 1.0], interleaved by channel.
package audio
