// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	bitDepth   int
	float      bool

	// byte offset of the first PCM byte and size of the data chunk
	dataStart int64
	dataSize  int64
	read      int64

	buf []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) BufSize() int    { return cap(s.buf) / s.bytesPerSample() }
func (s *wavSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("%w", err)
		}
	}
	return nil
}

func (s *wavSource) bytesPerSample() int { return s.bitDepth / 8 }
func (s *wavSource) blockAlign() int64   { return int64(s.bytesPerSample() * s.channels) }

func (s *wavSource) Frames() int64 { return s.dataSize / s.blockAlign() }

func (s *wavSource) SampleFormat() audio.SampleFormat {
	if s.float {
		return audio.FormatPCMFloat
	}
	return audio.FormatFromBitDepth(s.bitDepth)
}

// SeekFrame requires the underlying reader to be an io.Seeker.
func (s *wavSource) SeekFrame(frame int64) error {
	seeker, ok := s.r.(io.Seeker)
	if !ok {
		return audio.ErrNotSeekable
	}
	if frame < 0 || frame > s.Frames() {
		return audio.ErrSeekRange
	}

	offset := frame * s.blockAlign()
	if _, err := seeker.Seek(s.dataStart+offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	s.read = offset
	return nil
}

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	width := s.bytesPerSample()
	remaining := s.dataSize - s.read
	if remaining <= 0 {
		return 0, io.EOF
	}

	want := min(int64(len(dst)*width), remaining)
	if int64(cap(s.buf)) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.r, s.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w", err)
	}
	s.read += int64(n)

	samples := n / width
	s.convert(dst[:samples], s.buf[:samples*width])

	if samples == 0 {
		return 0, io.EOF
	}
	if err != nil || s.read >= s.dataSize {
		return samples, io.EOF
	}
	return samples, nil
}

func (s *wavSource) convert(dst []float32, b []byte) {
	switch {
	case s.float:
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
	case s.bitDepth == 8:
		// 8-bit WAV is unsigned
		for i := range dst {
			dst[i] = float32(int(b[i])-128) / 128.0
		}
	case s.bitDepth == 16:
		for i := range dst {
			dst[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768.0
		}
	case s.bitDepth == 24:
		scale := utils.PCMScale(24)
		for i := range dst {
			j := 3 * i
			v := int32(uint32(b[j]) | uint32(b[j+1])<<8 | uint32(b[j+2])<<16)
			v = (v << 8) >> 8 // sign extend
			dst[i] = float32(v) / scale
		}
	case s.bitDepth == 32:
		scale := utils.PCMScale(32)
		for i := range dst {
			dst[i] = float32(int32(binary.LittleEndian.Uint32(b[4*i:]))) / scale
		}
	}
}

// Decoder reads RIFF/WAVE files with PCM 8/16/24/32-bit or 32-bit float
// samples. Unknown chunks are skipped. When the reader is also an
// io.Seeker the returned source supports frame-accurate seeking.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	if !bytes.Equal(header[:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	src := &wavSource{r: r}
	offset := int64(12)
	haveFmt := false
	chunk := make([]byte, 8)

	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, ErrMissingDataChunk
			}
			return nil, fmt.Errorf("%w", err)
		}
		offset += 8

		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w", err)
			}
			offset += int64(len(body))
			if err := src.parseFormat(body); err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, ErrUnsupportedWavLayout
			}
			src.dataStart = offset
			src.dataSize = size - size%src.blockAlign()
			src.buf = make([]byte, 4096*src.bytesPerSample())
			return src, nil

		default:
			// chunks are word aligned
			skip := size + size%2
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("%w", err)
			}
			offset += skip
		}
	}
}

func (s *wavSource) parseFormat(body []byte) error {
	audioFormat := binary.LittleEndian.Uint16(body[0:2])
	s.channels = int(binary.LittleEndian.Uint16(body[2:4]))
	s.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
	s.bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))

	if audioFormat == formatExtensible && len(body) >= 26 {
		// first two bytes of the sub-format GUID carry the real format tag
		audioFormat = binary.LittleEndian.Uint16(body[24:26])
	}

	if s.channels < 1 || s.sampleRate < 1 {
		return ErrUnsupportedWavLayout
	}

	switch audioFormat {
	case formatPCM:
		switch s.bitDepth {
		case 8, 16, 24, 32:
			return nil
		}
	case formatFloat:
		if s.bitDepth == 32 {
			s.float = true
			return nil
		}
	}

	return ErrUnsupportedEncoding
}
