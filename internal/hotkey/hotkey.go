// Package hotkey turns a global key combination into begin/end dictation
// signals using gohook. It supports "hold" mode (press to begin, release to
// end) and "toggle" mode (press to begin, press again to end).
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
)

// Signal is a request to begin or end a recording.
type Signal int

const (
	// SignalBegin asks the session to start recording.
	SignalBegin Signal = iota
	// SignalEnd asks the session to stop recording and transcribe.
	SignalEnd
)

func (s Signal) String() string {
	if s == SignalEnd {
		return "end"
	}
	return "begin"
}

// Listener manages a global hotkey and emits signals.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	log  zerolog.Logger
	ch   chan Signal
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "r"]).
func NewListener(keys []string, mode string, log zerolog.Logger) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		log:  log,
		ch:   make(chan Signal, 16),
		done: make(chan struct{}),
	}
}

// Signals returns the channel that receives hotkey signals.
// The channel is closed when the listener stops.
func (l *Listener) Signals() <-chan Signal {
	return l.ch
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	switch l.mode {
	case "toggle":
		t := &toggler{}
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(t.press()) })
	default: // "hold"
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(SignalBegin) })
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) { l.emit(SignalEnd) })
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit sends s without blocking the hook thread.
func (l *Listener) emit(s Signal) {
	select {
	case l.ch <- s:
	default:
		l.log.Warn().Stringer("signal", s).Msg("hotkey signal dropped, channel full")
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// toggler alternates begin and end on successive presses.
type toggler struct {
	mu     sync.Mutex
	active bool
}

func (t *toggler) press() Signal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = !t.active
	if t.active {
		return SignalBegin
	}
	return SignalEnd
}

// Sink receives signals.
type Sink interface {
	Begin()
	End()
}

// Forward delivers every signal from ch to sink until ch is closed.
func Forward(ch <-chan Signal, sink Sink) {
	for s := range ch {
		switch s {
		case SignalBegin:
			sink.Begin()
		case SignalEnd:
			sink.End()
		}
	}
}
