// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC streams with github.com/gopxl/beep/v2/flac.
//
// Mono and stereo files keep their channel count; wider files are reduced
// to their first two channels by beep. Frames and SeekFrame work when the
// input is an io.ReadSeeker.
//
//	f, _ := os.Open("ambience.flac")
//	src, err := flac.Decoder{}.Decode(f)
package flac
