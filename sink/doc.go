// SPDX-License-Identifier: EPL-2.0

// Package sink groups the output adapters for a mixer.System.
//
// wavfile is a push sink for offline rendering through System.Update.
// otosink and beepsink pull blocks with System.Tick from an audio device or
// a beep pipeline.
package sink
