package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ANSI color codes used across CLI output functions.
const (
	colorReset = "\033[0m"
	colorGold  = "\033[38;5;220m" // empty-list notices
)

// Spinner shows an animated braille spinner on stderr while work is in progress.
// It is a no-op when stderr is not a terminal (e.g. when output is piped).
type Spinner struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// startSpinner starts the spinner with the given message and returns it.
// Call Stop() when the operation completes.
func startSpinner(msg string) *Spinner {
	s := &Spinner{stop: make(chan struct{})}
	if !stderrIsTerminal() {
		return s
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tick := time.NewTicker(80 * time.Millisecond)
		defer tick.Stop()
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Fprint(os.Stderr, "\r\033[K")
				return
			case <-tick.C:
				fmt.Fprintf(os.Stderr, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], msg)
				i++
			}
		}
	}()
	return s
}

// Stop halts the spinner and clears its line. Safe to call on a no-op spinner.
func (s *Spinner) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// jsonOut marshals v to JSON and writes it to cmd's output.
func jsonOut(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dash substitutes "-" for empty table cells.
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
