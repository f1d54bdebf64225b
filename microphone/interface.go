// Package microphone provides the PCM sources the capture loop reads from:
// a PortAudio input device and a wav file replayed as if it were live.
//
// Every source yields mono signed 16-bit samples at a fixed sample rate.
package microphone

import "errors"

var (
	// ErrInitialization wraps every failure to open a source. The capture
	// loop gives up on it without retrying.
	ErrInitialization = errors.New("microphone initialization failed")

	// ErrTransient marks a read that produced no usable audio but leaves the
	// source usable, such as an input overflow.
	ErrTransient = errors.New("transient microphone read anomaly")
)

// Source is a mono int16 audio input. Read blocks until a chunk is available
// and returns io.EOF once the source is exhausted.
type Source interface {
	// MinBufferSize reports the smallest chunk, in samples, the source
	// recommends at sampleRate.
	MinBufferSize(sampleRate int) (int, error)
	Open(sampleRate, chunkSize int) error
	Read(buf []int16) (int, error)
	Close() error
}
