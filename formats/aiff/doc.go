// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files with github.com/go-audio/aiff.
//
// 8, 16, 24 and 32-bit big-endian PCM is supported in any channel count.
// The length in frames is read from the COMM chunk. go-audio does not expose
// a frame seek, so these sources do not implement audio.Seeker; the mixer
// loads AIFF files fully into memory when seeking matters.
package aiff
