// SPDX-License-Identifier: EPL-2.0

// Package wav decodes RIFF/WAVE files into audio.Source values.
//
// Supported encodings are PCM 8/16/24/32-bit and IEEE float 32-bit, plain or
// WAVE_FORMAT_EXTENSIBLE, with any channel count and sample rate. Chunks
// other than "fmt " and "data" are skipped.
//
//	f, _ := os.Open("hit.wav")
//	src, err := wav.Decoder{}.Decode(f)
//
// When the reader passed to Decode is an io.Seeker (an *os.File or a
// *bytes.Reader) the source implements audio.Seeker, which the mixer uses to
// resume virtual channels and to seek streams.
//
// WriteWAV16 writes canonical 16-bit files; the mixer's file sink in
// sink/wavfile uses github.com/go-audio/wav for richer output.
package wav
