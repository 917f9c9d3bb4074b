// Package session coordinates one dictation cycle at a time: begin starts
// the microphone, end finalizes the recording and hands it to a
// transcription backend, and the result is delivered to an output
// callback. All state lives on a single event loop (Run); backend results
// are posted back to that loop before anything is mutated.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaz8081/gostt-dictate/internal/audio"
	"github.com/chaz8081/gostt-dictate/internal/logging"
	"github.com/chaz8081/gostt-dictate/internal/transcribe"
	"github.com/rs/zerolog"
)

// State is the observable phase of the session.
type State int32

const (
	Idle State = iota
	Recording
	Transcribing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	default:
		return "idle"
	}
}

// Label is the user-facing prompt for the state.
func (s State) Label() string {
	switch s {
	case Recording:
		return "Listening..."
	case Transcribing:
		return "Transcribing..."
	default:
		return "Hold to Speak"
	}
}

// Capture is the microphone side of a session.
type Capture interface {
	// Start begins recording. On error nothing is recording.
	Start() error
	// Stop ends recording and returns the finalized file, or nil if
	// nothing was recording.
	Stop() (*audio.Recording, error)
}

// Transcriber is the subset of transcribe.Backend the session needs.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, path string) (string, error)
}

// OutputFunc receives exactly one string per resolved cycle. It is called
// on the session loop.
type OutputFunc func(text string)

// Options tunes session policy.
type Options struct {
	// MinDuration discards shorter recordings without calling the backend.
	MinDuration time.Duration
	// ReportCaptureErrors delivers microphone setup failures to the output
	// as "[Error: ...]". When false they are only logged.
	ReportCaptureErrors bool
	// OnStateChange, if set, is called on the session loop after every
	// transition.
	OnStateChange func(State)
}

type eventKind int

const (
	evBegin eventKind = iota
	evEnd
	evResolved
)

type event struct {
	kind  eventKind
	cycle uint64
	text  string
	err   error
}

// Session is the capture state machine.
type Session struct {
	capture Capture
	backend Transcriber
	output  OutputFunc
	opts    Options
	log     zerolog.Logger

	events chan event
	done   chan struct{}
	ctx    context.Context

	state    atomic.Int32
	inflight sync.WaitGroup
	// Owned by the loop.
	cycle uint64
}

// New creates a session. Call Run to start processing Begin/End.
func New(capture Capture, backend Transcriber, output OutputFunc, opts Options, log zerolog.Logger) *Session {
	return &Session{
		capture: capture,
		backend: backend,
		output:  output,
		opts:    opts,
		log:     log,
		events:  make(chan event, 16),
		done:    make(chan struct{}),
		ctx:     context.Background(),
	}
}

// State returns the current state. Safe from any goroutine.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Begin requests the start of a recording. It is ignored unless the
// session is idle.
func (s *Session) Begin() { s.post(event{kind: evBegin}) }

// End requests the end of the current recording. It is ignored unless the
// session is recording.
func (s *Session) End() { s.post(event{kind: evEnd}) }

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Run processes events until ctx is cancelled. A recording still open at
// shutdown is stopped and discarded. Run returns only after an in-flight
// backend call has returned, so the backend may be closed afterwards.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer s.inflight.Wait()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			if s.State() == Recording {
				if _, err := s.capture.Stop(); err != nil {
					s.log.Warn().Err(err).Msg("stopping capture on shutdown")
				}
			}
			return ctx.Err()
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evBegin:
		s.begin()
	case evEnd:
		s.end()
	case evResolved:
		s.resolve(ev)
	}
}

func (s *Session) begin() {
	if st := s.State(); st != Idle {
		s.log.Debug().Stringer("state", st).Msg("begin ignored")
		return
	}

	if err := s.capture.Start(); err != nil {
		s.log.Error().Err(err).Msg("failed to start recording")
		if s.opts.ReportCaptureErrors {
			s.output(FormatFailure(transcribe.SessionConfigError(err)))
		}
		return
	}

	s.cycle++
	s.log.Info().Uint64(logging.FieldCycle, s.cycle).Msg("recording")
	s.setState(Recording)
}

func (s *Session) end() {
	if st := s.State(); st != Recording {
		s.log.Debug().Stringer("state", st).Msg("end ignored")
		return
	}

	rec, err := s.capture.Stop()
	if err != nil {
		s.log.Error().Err(err).Uint64(logging.FieldCycle, s.cycle).Msg("failed to finalize recording")
		s.setState(Idle)
		return
	}
	if rec == nil {
		s.log.Debug().Uint64(logging.FieldCycle, s.cycle).Msg("no recording produced")
		s.setState(Idle)
		return
	}
	if rec.Duration < s.opts.MinDuration {
		s.log.Info().
			Uint64(logging.FieldCycle, s.cycle).
			Dur("duration", rec.Duration).
			Msg("recording too short, skipping")
		s.setState(Idle)
		return
	}

	s.log.Info().
		Uint64(logging.FieldCycle, s.cycle).
		Dur("duration", rec.Duration).
		Str(logging.FieldBackend, s.backend.Name()).
		Msg("transcribing")
	s.setState(Transcribing)

	s.inflight.Add(1)
	go s.transcribe(s.ctx, s.cycle, rec.Path)
}

// transcribe runs off the loop and posts its single result back to it.
func (s *Session) transcribe(ctx context.Context, cycle uint64, path string) {
	defer s.inflight.Done()
	start := time.Now()
	text, err := s.backend.Transcribe(ctx, path)
	s.log.Debug().
		Uint64(logging.FieldCycle, cycle).
		Dur("elapsed", time.Since(start)).
		Msg("backend returned")
	s.post(event{kind: evResolved, cycle: cycle, text: text, err: err})
}

func (s *Session) resolve(ev event) {
	if s.State() != Transcribing || ev.cycle != s.cycle {
		s.log.Warn().Uint64(logging.FieldCycle, ev.cycle).Msg("dropping stale transcription result")
		return
	}

	if ev.err != nil {
		s.log.Error().
			Err(ev.err).
			Uint64(logging.FieldCycle, ev.cycle).
			Stringer("kind", transcribe.KindOf(ev.err)).
			Msg("transcription failed")
		s.output(FormatFailure(ev.err))
	} else {
		s.log.Info().Uint64(logging.FieldCycle, ev.cycle).Int("chars", len(ev.text)).Msg("transcribed")
		s.output(FormatSuccess(ev.text))
	}
	s.setState(Idle)
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(st)
	}
}

// FormatSuccess returns text with exactly one trailing space, ready to be
// followed by the next dictation. Leading whitespace is kept.
func FormatSuccess(text string) string {
	return strings.TrimRight(text, " \t\r\n") + " "
}

// FormatFailure renders err as a bracketed message, e.g. "[Error: Invalid API Key]".
func FormatFailure(err error) string {
	return "[Error: " + transcribe.Message(err) + "]"
}
