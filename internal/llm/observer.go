package llm

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/term"
)

// Observer receives progress notes and streamed response fragments during a
// generation. Implementations must tolerate concurrent calls when the owning
// client is shared across goroutines.
type Observer interface {
	Progress(msg string)
	StreamChunk(chunk string)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) Progress(string)    {}
func (NopObserver) StreamChunk(string) {}

// LogObserver logs progress lines and, when Echo is set, writes streamed
// fragments straight to stdout so the user can watch the response arrive.
type LogObserver struct {
	Echo bool
}

// NewLogObserver enables chunk echo only when stdout is a terminal, so piped
// output stays clean.
func NewLogObserver() *LogObserver {
	return &LogObserver{Echo: term.IsTerminal(int(os.Stdout.Fd()))}
}

func (o *LogObserver) Progress(msg string) {
	log.Printf("llm: %s", msg)
}

func (o *LogObserver) StreamChunk(chunk string) {
	if o.Echo {
		fmt.Print(chunk)
	}
}
