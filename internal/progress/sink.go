package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
		// Drop on backpressure so an absent/slow UI cannot block scan workers.
	}
}

type PlainSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) Emit(e Event) {
	if s == nil || s.w == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	line := formatPlain(e)
	if line == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, line)
}

func formatPlain(e Event) string {
	ts := e.At.Format("15:04:05")
	switch e.Type {
	case EventScanStarted:
		return fmt.Sprintf("[%s] scan %s started files=%d", ts, e.SessionID, e.Total)
	case EventScanPaused:
		return fmt.Sprintf("[%s] scan %s paused at %d/%d", ts, e.SessionID, e.Processed, e.Total)
	case EventScanResumed:
		return fmt.Sprintf("[%s] scan %s resumed", ts, e.SessionID)
	case EventScanFinished:
		line := fmt.Sprintf("[%s] scan %s finished status=%s findings=%d duration=%dms", ts, e.SessionID, e.Status, e.FindingCount, e.DurationMS)
		if strings.TrimSpace(e.Error) != "" {
			line += " error=" + strings.TrimSpace(e.Error)
		}
		return line
	case EventFileScanned:
		if e.FindingCount == 0 {
			return ""
		}
		return fmt.Sprintf("[%s] %s findings=%d (%d/%d)", ts, e.File, e.FindingCount, e.Processed, e.Total)
	case EventFileError:
		return fmt.Sprintf("[%s] %s error: %s", ts, e.File, strings.TrimSpace(e.Error))
	default:
		return ""
	}
}
