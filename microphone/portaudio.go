package microphone

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio reads from a system input device. An empty device name selects
// the default input device.
type PortAudio struct {
	deviceName string
	logger     *slog.Logger

	mu           sync.Mutex
	audioRunning bool
	stream       *portaudio.Stream
	in           []int16
	closed       bool
}

func NewPortAudio(deviceName string, logger *slog.Logger) *PortAudio {
	if logger == nil {
		logger = slog.Default()
	}

	return &PortAudio{
		deviceName: deviceName,
		logger:     logger,
	}
}

func (p *PortAudio) initAudio() error {
	if !p.audioRunning {
		err := portaudio.Initialize()
		if err != nil {
			return err
		}

		p.audioRunning = true
	}

	return nil
}

func (p *PortAudio) freeAudio() {
	if p.audioRunning {
		err := portaudio.Terminate()
		if err != nil {
			p.logger.Warn("Error while freeing audio", slog.String("error", err.Error()))
		}

		p.audioRunning = false
	}
}

func (p *PortAudio) device() (*portaudio.DeviceInfo, error) {
	if p.deviceName == "" {
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		if d.Name == p.deviceName && d.MaxInputChannels > 0 {
			return d, nil
		}
	}

	return nil, fmt.Errorf("input device %q not found", p.deviceName)
}

// MinBufferSize derives the chunk size from the device's default low input
// latency.
func (p *PortAudio) MinBufferSize(sampleRate int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.initAudio(); err != nil {
		return 0, err
	}

	dev, err := p.device()
	if err != nil {
		return 0, err
	}

	return int(dev.DefaultLowInputLatency.Seconds() * float64(sampleRate)), nil
}

func (p *PortAudio) Open(sampleRate, chunkSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.initAudio(); err != nil {
		return fmt.Errorf("%w: portaudio init: %v", ErrInitialization, err)
	}

	dev, err := p.device()
	if err != nil {
		p.freeAudio()
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	p.in = make([]int16, chunkSize)

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.Output.Channels = 0
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = chunkSize

	stream, err := portaudio.OpenStream(params, p.in)
	if err != nil {
		p.freeAudio()
		return fmt.Errorf("%w: portaudio open stream: %v", ErrInitialization, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		p.freeAudio()
		return fmt.Errorf("%w: portaudio start stream: %v", ErrInitialization, err)
	}

	p.stream = stream
	p.closed = false

	p.logger.Info("Microphone opened",
		slog.String("device", dev.Name),
		slog.Int("sample_rate", sampleRate),
		slog.Int("chunk_samples", chunkSize),
	)

	return nil
}

func (p *PortAudio) Read(buf []int16) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || p.closed {
		return 0, io.EOF
	}

	err := p.stream.Read()
	if err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return 0, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return 0, err
	}

	return copy(buf, p.in), nil
}

func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || p.closed {
		p.freeAudio()
		return nil
	}
	p.closed = true

	stopErr := p.stream.Stop()
	closeErr := p.stream.Close()
	p.stream = nil
	p.freeAudio()

	return errors.Join(stopErr, closeErr)
}

// Device describes an audio input device.
type Device struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// Devices lists the input devices PortAudio can open.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()

	all, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	def, _ := portaudio.DefaultInputDevice()

	devices := make([]Device, 0, len(all))
	for _, d := range all {
		if d.MaxInputChannels < 1 {
			continue
		}

		host := ""
		if d.HostApi != nil {
			host = d.HostApi.Name
		}

		devices = append(devices, Device{
			Name:              d.Name,
			HostAPI:           host,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         def != nil && d.Name == def.Name,
		})
	}

	return devices, nil
}
