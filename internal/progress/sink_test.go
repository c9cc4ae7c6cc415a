package progress

import (
	"strings"
	"testing"
	"time"
)

func TestChannelSink_DropsOnBackpressure(t *testing.T) {
	ch := make(chan Event, 1)
	sink := NewChannelSink(ch)

	sink.Emit(Event{Type: EventFileScanned, File: "a.php"})
	sink.Emit(Event{Type: EventFileScanned, File: "b.php"}) // buffer full, dropped

	if len(ch) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(ch))
	}
	got := <-ch
	if got.File != "a.php" {
		t.Errorf("expected first event kept, got %s", got.File)
	}
	if got.At.IsZero() {
		t.Error("Emit should stamp a timestamp")
	}
}

func TestPlainSink_Format(t *testing.T) {
	var sb strings.Builder
	sink := NewPlainSink(&sb)
	at := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)

	sink.Emit(Event{Type: EventScanStarted, At: at, SessionID: "s1", Total: 10})
	sink.Emit(Event{Type: EventFileScanned, At: at, File: "clean.php", Processed: 1, Total: 10})
	sink.Emit(Event{Type: EventFileScanned, At: at, File: "vuln.php", FindingCount: 2, Processed: 2, Total: 10})
	sink.Emit(Event{Type: EventFileError, At: at, File: "bad.php", Error: "read failed"})
	sink.Emit(Event{Type: EventScanFinished, At: at, SessionID: "s1", Status: "completed", FindingCount: 2, DurationMS: 42})

	out := sb.String()
	if !strings.Contains(out, "scan s1 started files=10") {
		t.Errorf("missing start line:\n%s", out)
	}
	if strings.Contains(out, "clean.php") {
		t.Errorf("files without findings should not be printed:\n%s", out)
	}
	if !strings.Contains(out, "vuln.php findings=2") {
		t.Errorf("missing finding line:\n%s", out)
	}
	if !strings.Contains(out, "bad.php error: read failed") {
		t.Errorf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "status=completed") {
		t.Errorf("missing finish line:\n%s", out)
	}
}

func TestNilSinksAreSafe(t *testing.T) {
	var cs *ChannelSink
	cs.Emit(Event{})
	var ps *PlainSink
	ps.Emit(Event{})
	NoopSink{}.Emit(Event{})
}
