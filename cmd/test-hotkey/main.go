// Command test-hotkey is a manual check of the hotkey wiring. Each press
// drives a capture session backed by a silent fake microphone and an echo
// backend, so the prompt labels and outputs can be watched without audio
// hardware or an API key.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--mode hold|toggle] [--keys ctrl,shift,r] [--delay 500ms]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/gostt-dictate/internal/audio"
	"github.com/chaz8081/gostt-dictate/internal/hotkey"
	"github.com/chaz8081/gostt-dictate/internal/logging"
	"github.com/chaz8081/gostt-dictate/internal/session"
)

// clockCapture pretends to record and reports how long the key was held.
type clockCapture struct {
	started time.Time
	active  bool
}

func (c *clockCapture) Start() error {
	c.started, c.active = time.Now(), true
	return nil
}

func (c *clockCapture) Stop() (*audio.Recording, error) {
	if !c.active {
		return nil, nil
	}
	c.active = false
	return &audio.Recording{Path: "(none)", StartedAt: c.started, Duration: time.Since(c.started)}, nil
}

// echoBackend waits, then returns a transcript naming the signal count.
type echoBackend struct {
	delay time.Duration
	n     int
}

func (b *echoBackend) Name() string { return "echo" }

func (b *echoBackend) Transcribe(ctx context.Context, _ string) (string, error) {
	b.n++
	select {
	case <-time.After(b.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("dictation #%d", b.n), nil
}

func main() {
	mode := flag.String("mode", "hold", "hotkey mode: hold or toggle")
	keyList := flag.String("keys", "ctrl,shift,r", "comma-separated key combination")
	delay := flag.Duration("delay", 500*time.Millisecond, "simulated transcription time")
	flag.Parse()

	keys := strings.Split(*keyList, ",")
	log := logging.New("debug", "console", os.Stderr)

	fmt.Printf("Listening for %s in %q mode...\n", strings.Join(keys, "+"), *mode)
	fmt.Println("Press Ctrl+C to exit.")

	sess := session.New(&clockCapture{}, &echoBackend{delay: *delay},
		func(text string) { fmt.Printf("    output: %q\n", text) },
		session.Options{
			OnStateChange: func(st session.State) { fmt.Printf("[%s]\n", st.Label()) },
		},
		logging.Component(log, "session"))

	listener := hotkey.NewListener(keys, *mode, logging.Component(log, "hotkey"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	done := make(chan struct{})
	go func() {
		_ = sess.Run(ctx)
		close(done)
	}()
	go hotkey.Forward(listener.Signals(), sess)

	fmt.Printf("[%s]\n", sess.State().Label())

	// Blocks until stopped
	listener.Start()
	<-done
	fmt.Println("Done.")
}
