// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with
// github.com/jfreymuth/oggvorbis.
//
// Samples come out as interleaved float32 in the file's own channel count.
// Seeking uses the Ogg granule index and is only available when the reader
// given to Decode is an io.Seeker.
package vorbis
