// SPDX-License-Identifier: EPL-2.0

package mixer

// Sink receives mixed blocks from System.Update: interleaved float32 in
// the system's speaker layout. The slice is reused after Write returns.
type Sink interface {
	Write(samples []float32) error
	Close() error
}

// DiscardSink drops everything and counts what it was given.
type DiscardSink struct {
	Samples int64
}

func (d *DiscardSink) Write(samples []float32) error {
	d.Samples += int64(len(samples))
	return nil
}

func (d *DiscardSink) Close() error { return nil }
