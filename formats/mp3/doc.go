// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 streams with github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces interleaved stereo 16-bit PCM, so the returned
// source reports two channels and audio.FormatPCM16 regardless of the file.
// Frames and SeekFrame work when the input is an io.Seeker; otherwise the
// length is unknown (-1) and seeking fails with audio.ErrNotSeekable.
//
//	f, _ := os.Open("theme.mp3")
//	src, err := mp3.Decoder{}.Decode(f)
package mp3
