package microphone

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// WavFile replays a mono 16-bit wav file. With Realtime set, Read paces
// chunks to the wall clock so the recognition loop sees audio arrive the way
// it would from a device.
type WavFile struct {
	fileSys  afero.Fs
	path     string
	realtime bool

	mu        sync.Mutex
	samples   []int16
	pos       int
	chunkSize int
	rate      int
	started   time.Time
	sleep     func(time.Duration)
}

type WavFileConfig struct {
	FileSys  afero.Fs
	Path     string
	Realtime bool
}

func NewWavFile(cfg *WavFileConfig) (*WavFile, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("path is empty")
	}

	return &WavFile{
		fileSys:  cfg.FileSys,
		path:     cfg.Path,
		realtime: cfg.Realtime,
		sleep:    time.Sleep,
	}, nil
}

// MinBufferSize is 100ms of audio.
func (w *WavFile) MinBufferSize(sampleRate int) (int, error) {
	return sampleRate / 10, nil
}

func (w *WavFile) Open(sampleRate, chunkSize int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fileSys.Open(w.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return fmt.Errorf("%w: %s is not a valid wav file", ErrInitialization, w.path)
	}

	if decoder.NumChans != 1 || decoder.BitDepth != 16 {
		return fmt.Errorf("%w: %s must be mono 16-bit, got %d channels at %d bits",
			ErrInitialization, w.path, decoder.NumChans, decoder.BitDepth)
	}

	if int(decoder.SampleRate) != sampleRate {
		return fmt.Errorf("%w: %s is %d Hz, want %d Hz", ErrInitialization, w.path, decoder.SampleRate, sampleRate)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrInitialization, w.path, err)
	}

	w.samples = make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		w.samples[i] = int16(s)
	}
	w.pos = 0
	w.chunkSize = chunkSize
	w.rate = sampleRate
	w.started = time.Now()

	return nil
}

func (w *WavFile) Read(buf []int16) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.samples == nil || w.pos >= len(w.samples) {
		return 0, io.EOF
	}

	n := w.chunkSize
	if n > len(buf) {
		n = len(buf)
	}
	if remaining := len(w.samples) - w.pos; n > remaining {
		n = remaining
	}

	if w.realtime {
		due := w.started.Add(time.Duration(w.pos+n) * time.Second / time.Duration(w.rate))
		if wait := time.Until(due); wait > 0 {
			w.sleep(wait)
		}
	}

	copy(buf, w.samples[w.pos:w.pos+n])
	w.pos += n

	return n, nil
}

func (w *WavFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = nil
	w.pos = 0

	return nil
}

// Duration is the length of the decoded audio; zero before Open.
func (w *WavFile) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rate == 0 {
		return 0
	}

	return time.Duration(len(w.samples)) * time.Second / time.Duration(w.rate)
}
