// Package audio owns the microphone session: it captures mono speech-rate
// PCM with malgo and finalizes each take into a single fixed-path WAV file.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// ErrSessionConfig is wrapped by every Start failure caused by the audio
// subsystem rejecting the capture configuration.
var ErrSessionConfig = errors.New("audio: session configuration failed")

// Options configures a Recorder.
type Options struct {
	SampleRate uint32
	Channels   uint32
	// FilePath is overwritten by every recording.
	FilePath string
	// Device selects the first capture device whose name contains this
	// string (case-insensitive), e.g. "AirPods". Empty uses the default.
	Device string
}

// Recording is the finalized file produced by Stop.
type Recording struct {
	Path      string
	StartedAt time.Time
	Duration  time.Duration
	Frames    int
}

// Recorder captures audio from a microphone into a WAV file.
type Recorder struct {
	ctx  *malgo.AllocatedContext
	opts Options
	log  zerolog.Logger

	mu        sync.Mutex
	device    *malgo.Device
	buf       []int
	recording bool
	startedAt time.Time
}

// NewRecorder initializes the audio context. Call Close() when done.
func NewRecorder(opts Options, log zerolog.Logger) (*Recorder, error) {
	if opts.SampleRate == 0 || opts.Channels == 0 {
		return nil, fmt.Errorf("audio: sample rate and channels must be > 0")
	}
	if opts.FilePath == "" {
		return nil, fmt.Errorf("audio: file path must not be empty")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}

	return &Recorder{
		ctx:  ctx,
		opts: opts,
		log:  log,
	}, nil
}

// Start opens a shared-mode capture device so other applications keep
// playing audio, and begins buffering samples. On failure the recorder
// stays idle and the error wraps ErrSessionConfig.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("audio: already recording")
	}
	r.buf = r.buf[:0]
	r.recording = true
	r.startedAt = time.Now()
	r.mu.Unlock()

	device, err := r.openDevice()
	if err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.device = device
	r.mu.Unlock()

	r.log.Debug().
		Uint32("sample_rate", r.opts.SampleRate).
		Uint32("channels", r.opts.Channels).
		Str("device", r.opts.Device).
		Msg("capture started")
	return nil
}

// openDevice configures and starts a capture device.
func (r *Recorder) openDevice() (*malgo.Device, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = r.opts.Channels
	cfg.Capture.ShareMode = malgo.Shared
	cfg.SampleRate = r.opts.SampleRate

	if r.opts.Device != "" {
		id, err := r.findDevice(r.opts.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionConfig, err)
		}
		cfg.Capture.DeviceID = id
	}

	device, err := malgo.InitDevice(r.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: r.onData,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initializing capture device: %w", ErrSessionConfig, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: starting capture device: %w", ErrSessionConfig, err)
	}
	return device, nil
}

// findDevice returns the ID of the first capture device whose name contains name.
func (r *Recorder) findDevice(name string) (unsafe.Pointer, error) {
	infos, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return infos[i].ID.Pointer(), nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q", name)
}

// Stop ends the capture, writes the buffered audio to the fixed file path
// and returns it. Stop is a no-op returning (nil, nil) when not recording.
// Failing to stop the device is logged and otherwise ignored.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, nil
	}
	device := r.device
	r.device = nil
	r.recording = false
	samples := make([]int, len(r.buf))
	copy(samples, r.buf)
	startedAt := r.startedAt
	r.mu.Unlock()

	// Outside the lock: the data callback takes mu.
	if device != nil {
		if err := device.Stop(); err != nil {
			r.log.Warn().Err(err).Msg("stopping capture device")
		}
		device.Uninit()
	}

	if err := WriteWAV(r.opts.FilePath, samples, int(r.opts.SampleRate), int(r.opts.Channels)); err != nil {
		return nil, fmt.Errorf("audio: finalizing recording: %w", err)
	}

	frames := len(samples) / int(r.opts.Channels)
	return &Recording{
		Path:      r.opts.FilePath,
		StartedAt: startedAt,
		Duration:  time.Duration(frames) * time.Second / time.Duration(r.opts.SampleRate),
		Frames:    frames,
	}, nil
}

// IsRecording returns whether the recorder is currently capturing audio.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Probe opens and immediately closes a capture device. It reports whether
// the microphone can be used right now.
func (r *Recorder) Probe() error {
	device, err := r.openDevice()
	if err != nil {
		return err
	}
	_ = device.Stop()
	device.Uninit()
	return nil
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.mu.Lock()
	device := r.device
	r.device = nil
	r.recording = false
	r.mu.Unlock()

	if device != nil {
		device.Uninit()
	}

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		r.ctx.Free()
	}
	return nil
}

// onData is the malgo callback invoked when captured frames are available.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToInt16(pSample, int(frameCount*r.opts.Channels))

	r.mu.Lock()
	if r.recording {
		r.buf = append(r.buf, samples...)
	}
	r.mu.Unlock()
}

// bytesToInt16 converts little-endian signed 16-bit PCM to ints.
func bytesToInt16(data []byte, sampleCount int) []int {
	samples := make([]int, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		offset := i * 2
		if offset+2 > len(data) {
			break
		}
		samples = append(samples, int(int16(binary.LittleEndian.Uint16(data[offset:offset+2]))))
	}
	return samples
}
