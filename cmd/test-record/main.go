// Command test-record is a manual test for microphone capture.
// It records for a few seconds and writes the WAV to the given path.
//
// Usage:
//
//	go run ./cmd/test-record [--seconds 3] [--out voice_input.wav] [--device AirPods]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chaz8081/gostt-dictate/internal/audio"
	"github.com/chaz8081/gostt-dictate/internal/logging"
)

func main() {
	seconds := flag.Int("seconds", 3, "recording length in seconds")
	out := flag.String("out", "voice_input.wav", "output WAV path")
	device := flag.String("device", "", "capture device name substring (default: system default)")
	flag.Parse()

	if err := record(*seconds, *out, *device); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func record(seconds int, out, device string) error {
	log := logging.New("debug", "console", os.Stderr)

	rec, err := audio.NewRecorder(audio.Options{
		SampleRate: 12000,
		Channels:   1,
		FilePath:   out,
		Device:     device,
	}, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	if err := rec.Start(); err != nil {
		return err
	}
	fmt.Printf("Recording for %ds, speak now...\n", seconds)
	time.Sleep(time.Duration(seconds) * time.Second)

	r, err := rec.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s, %d frames)\n", r.Path, r.Duration.Round(time.Millisecond), r.Frames)
	return nil
}
