// Command test-inject is a manual test for text insertion.
// It waits 3 seconds, then types or pastes a sample transcript.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste|stdout] [--error]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chaz8081/gostt-dictate/internal/inject"
	"github.com/chaz8081/gostt-dictate/internal/logging"
	"github.com/chaz8081/gostt-dictate/internal/session"
	"github.com/chaz8081/gostt-dictate/internal/transcribe"
)

func main() {
	method := flag.String("method", "type", "inject method: type, paste or stdout")
	asError := flag.Bool("error", false, "insert a failure message instead of a transcript")
	flag.Parse()

	text := session.FormatSuccess("Hello from gostt-dictate!")
	if *asError {
		text = session.FormatFailure(transcribe.NetworkError(errors.New("The request timed out.")))
	}

	fmt.Printf("Will insert %q using %q method in 3 seconds...\n", text, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	inj := inject.NewInjector(*method, os.Stdout, logging.New("debug", "console", os.Stderr))
	if err := inj.Insert(text); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
