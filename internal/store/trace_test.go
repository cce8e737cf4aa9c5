package store

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestTraceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := TraceEntry{
			Generation: i + 1,
			BestScore:  float64(i) * 1.5,
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		if err := tw.Write(entry); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("Got %d entries, want 5", len(entries))
	}
	if entries[0].Generation != 1 || entries[4].Generation != 5 {
		t.Errorf("Generations out of order: %+v", entries)
	}
	if entries[2].BestScore != 3.0 {
		t.Errorf("entries[2].BestScore = %g, want 3.0", entries[2].BestScore)
	}
	if !entries[0].Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", entries[0].Timestamp, base)
	}
}

func TestTraceReadAfterFlush(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	defer tw.Close()

	if err := tw.Write(TraceEntry{Generation: 1, BestScore: 2, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entry, err := tr.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if entry.Generation != 1 {
		t.Errorf("Generation = %d, want 1", entry.Generation)
	}
	if _, err := tr.Read(); err != io.EOF {
		t.Errorf("Second read: err = %v, want io.EOF", err)
	}
}

func TestTraceReaderMissingRun(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
