package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

const (
	spinnerFrameWidth = 2                     // braille frames render about two columns wide
	spinnerAnimDelay  = 80 * time.Millisecond // frame delay
	spinnerClearPad   = 5                     // extra clearance for terminal variations
	progressBarWidth  = 24
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// simpleSpinner animates on a terminal while an operation runs.
type simpleSpinner struct {
	current  int
	message  string
	done     atomic.Bool
	stopped  chan struct{}
	w        io.Writer
	clearLen int
}

func newSimpleSpinner(w io.Writer, message string) *simpleSpinner {
	return &simpleSpinner{
		message:  message,
		w:        w,
		stopped:  make(chan struct{}),
		clearLen: spinnerFrameWidth + 1 + len(message),
	}
}

func (s *simpleSpinner) Start() {
	if !isTTY() {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		close(s.stopped)
		return
	}

	go func() {
		defer close(s.stopped)
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		for !s.done.Load() {
			frame := spinnerFrames[s.current%len(spinnerFrames)]
			fmt.Fprintf(s.w, "\r%s %s", style.Render(frame), s.message)
			s.current++
			time.Sleep(spinnerAnimDelay)
		}
	}()
}

func (s *simpleSpinner) Stop() {
	s.done.Store(true)
	<-s.stopped
	if isTTY() {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.clearLen+spinnerClearPad)+"\r")
	}
}

// runWithSpinner runs operation while a spinner animates.
func runWithSpinner(w io.Writer, message string, operation func() error) error {
	spin := newSimpleSpinner(w, message)
	spin.Start()
	err := operation()
	spin.Stop()
	return err
}

// progressPrinter renders folder migration progress. On a terminal it
// redraws one line with a bar; elsewhere it prints one line per phase.
type progressPrinter struct {
	mu        sync.Mutex
	w         io.Writer
	lastPhase xuanbrain.MigrationPhase
	lineLen   int
	updates   int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Emit implements xuanbrain.ProgressSink.
func (p *progressPrinter) Emit(_ string, st xuanbrain.MigrationStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++

	if !isTTY() {
		if st.Phase != p.lastPhase {
			fmt.Fprintf(p.w, "%s (%d/%d files)\n", phaseLabel(st.Phase), st.ProcessedFiles, st.TotalFiles)
		}
		if st.Error != nil {
			fmt.Fprintf(p.w, "  error: %s\n", *st.Error)
		}
		p.lastPhase = st.Phase
		return nil
	}

	line := fmt.Sprintf("%s %s %3.0f%% %s", renderBar(st.Percent()), phaseLabel(st.Phase), st.Percent(), currentFile(st))
	pad := ""
	if n := lipgloss.Width(line); n < p.lineLen {
		pad = strings.Repeat(" ", p.lineLen-n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.lineLen = lipgloss.Width(line)

	if st.Phase.IsTerminal() || st.Error != nil {
		fmt.Fprintln(p.w)
		p.lineLen = 0
	}
	p.lastPhase = st.Phase
	return nil
}

func renderBar(percent float64) string {
	filled := int(percent / 100 * progressBarWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	return lipgloss.NewStyle().Foreground(colorPrimary).Render(bar)
}

func currentFile(st xuanbrain.MigrationStatus) string {
	if st.CurrentFile == nil {
		return ""
	}
	name := *st.CurrentFile
	if len(name) > 40 {
		name = "…" + name[len(name)-39:]
	}
	return mutedStyle.Render(name)
}

var phaseLabels = map[xuanbrain.MigrationPhase]string{
	xuanbrain.PhasePreparing:       "Preparing",
	xuanbrain.PhaseCopyingDatabase: "Copying database",
	xuanbrain.PhaseCopyingConfig:   "Copying config",
	xuanbrain.PhaseCopyingFiles:    "Copying files",
	xuanbrain.PhaseCopyingCache:    "Copying cache",
	xuanbrain.PhaseCopyingLogs:     "Copying logs",
	xuanbrain.PhaseVerifying:       "Verifying",
	xuanbrain.PhaseCompleted:       "Completed",
	xuanbrain.PhaseRollingBack:     "Rolling back",
}

func phaseLabel(p xuanbrain.MigrationPhase) string {
	if l, ok := phaseLabels[p]; ok {
		return l
	}
	return string(p)
}
