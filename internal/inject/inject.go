// Package inject delivers transcribed text to the user: typed into the
// active application with robotgo, pasted through the clipboard, or written
// to a stream.
package inject

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"
)

// Injector inserts text using the configured method.
type Injector struct {
	method string // "type", "paste" or "stdout"
	w      io.Writer
	log    zerolog.Logger

	// Seams for robotgo so the dispatch logic can be tested headless.
	typeStr   func(string)
	readClip  func() (string, error)
	writeClip func(string) error
	keyTap    func(key string, mods ...interface{}) error
	sleep     func(time.Duration)
}

// restoreDelay gives the focused application time to read the clipboard
// before the previous contents are put back.
const restoreDelay = 150 * time.Millisecond

// NewInjector creates an Injector with the given method. w receives text
// for the "stdout" method.
func NewInjector(method string, w io.Writer, log zerolog.Logger) *Injector {
	return &Injector{
		method:    method,
		w:         w,
		log:       log,
		typeStr:   func(s string) { robotgo.Type(s) },
		readClip:  robotgo.ReadAll,
		writeClip: robotgo.WriteAll,
		keyTap:    robotgo.KeyTap,
		sleep:     time.Sleep,
	}
}

// Insert sends text to its destination. Empty text is a no-op.
func (inj *Injector) Insert(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case "paste":
		return inj.paste(text)
	case "stdout":
		if _, err := io.WriteString(inj.w, text); err != nil {
			return fmt.Errorf("inject: write: %w", err)
		}
		return nil
	default: // "type"
		inj.typeStr(text)
		return nil
	}
}

// Output adapts Insert to a session output callback, logging failures.
func (inj *Injector) Output() func(string) {
	return func(text string) {
		if err := inj.Insert(text); err != nil {
			inj.log.Error().Err(err).Str("method", inj.method).Msg("text insertion failed")
			return
		}
		inj.log.Debug().Int("chars", len(text)).Msg("text inserted")
	}
}

// paste copies text to the clipboard, sends the paste shortcut and then
// restores the previous clipboard contents (best effort).
func (inj *Injector) paste(text string) error {
	prev, _ := inj.readClip()

	if err := inj.writeClip(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	mod := pasteModifier()
	if err := inj.keyTap("v", mod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", mod, err)
	}

	inj.sleep(restoreDelay)
	_ = inj.writeClip(prev)
	return nil
}

func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}
