// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"sort"
	"strings"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	// A streaming source may return n == 0 with a nil error when no data is ready yet.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Seeker is implemented by sources that can reposition their read cursor.
type Seeker interface {
	// SeekFrame moves the read cursor to the given frame (one sample per channel).
	SeekFrame(frame int64) error
}

// Lengther is implemented by sources that know their length up front.
type Lengther interface {
	// Frames returns the total length in frames, or -1 when unknown.
	Frames() int64
}

// SampleFormat describes how a source stores samples before conversion to float32.
type SampleFormat int

const (
	FormatNone SampleFormat = iota
	FormatPCM8
	FormatPCM16
	FormatPCM24
	FormatPCM32
	FormatPCMFloat
	FormatBitstream
)

var sampleFormatNames = map[SampleFormat]string{
	FormatNone:      "none",
	FormatPCM8:      "pcm8",
	FormatPCM16:     "pcm16",
	FormatPCM24:     "pcm24",
	FormatPCM32:     "pcm32",
	FormatPCMFloat:  "pcmfloat",
	FormatBitstream: "bitstream",
}

func (f SampleFormat) String() string {
	if s, ok := sampleFormatNames[f]; ok {
		return s
	}
	return "unknown"
}

// FormatFromBitDepth maps an integer PCM bit depth to a SampleFormat.
func FormatFromBitDepth(bits int) SampleFormat {
	switch bits {
	case 8:
		return FormatPCM8
	case 16:
		return FormatPCM16
	case 24:
		return FormatPCM24
	case 32:
		return FormatPCM32
	default:
		return FormatNone
	}
}

// Formatter is implemented by sources that report their native sample format.
type Formatter interface {
	SampleFormat() SampleFormat
}

// FormatOf returns the native sample format of src, or FormatPCMFloat when
// the source does not say.
func FormatOf(src Source) SampleFormat {
	if f, ok := src.(Formatter); ok {
		return f.SampleFormat()
	}
	return FormatPCMFloat
}

// FramesOf returns the length of src in frames, or -1 when unknown.
func FramesOf(src Source) int64 {
	if l, ok := src.(Lengther); ok {
		return l.Frames()
	}
	return -1
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
// Keys are case-insensitive and a leading dot is ignored, so file
// extensions can be used directly.
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func normalizeKey(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normalizeKey(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[normalizeKey(format)]
	return d, ok
}

// Formats lists the registered keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
