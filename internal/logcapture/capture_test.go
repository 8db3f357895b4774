package logcapture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/voicetray/vigil/internal/logstore"
)

// memSink records appended entries in memory.
type memSink struct {
	mu      sync.Mutex
	entries []logstore.Entry
	fail    bool
}

func (s *memSink) Append(_ context.Context, e logstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *memSink) Close() error { return nil }

func (s *memSink) all() []logstore.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logstore.Entry(nil), s.entries...)
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestCaptureTagsStreams(t *testing.T) {
	sink := &memSink{}
	c := New("server", sink)

	stdout := strings.NewReader("line one\nline two\n")
	stderr := strings.NewReader("oops\n")
	c.Attach(stdout, stderr, nil, nil)
	c.Wait()

	entries := sink.all()
	if len(entries) != 3 {
		t.Fatalf("captured %d entries, want 3", len(entries))
	}
	byLevel := map[string][]string{}
	for _, e := range entries {
		if e.Component != "server" {
			t.Fatalf("component = %q", e.Component)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Fatalf("entry not populated: %+v", e)
		}
		byLevel[e.Level] = append(byLevel[e.Level], e.Message)
	}
	if len(byLevel["info"]) != 2 || len(byLevel["error"]) != 1 {
		t.Fatalf("level split = %v", byLevel)
	}
	if byLevel["error"][0] != "oops" {
		t.Fatalf("stderr message = %q", byLevel["error"][0])
	}
}

func TestCaptureMirrorsToWriters(t *testing.T) {
	sink := &memSink{}
	c := New("server", sink)
	var out, errBuf bytes.Buffer

	c.Attach(
		strings.NewReader("hello\n"),
		strings.NewReader("world\n"),
		nopCloser{&out}, nopCloser{&errBuf},
	)
	c.Wait()

	if out.String() != "hello\n" {
		t.Fatalf("stdout mirror = %q", out.String())
	}
	if errBuf.String() != "world\n" {
		t.Fatalf("stderr mirror = %q", errBuf.String())
	}
}

func TestCaptureSwallowsSinkErrors(t *testing.T) {
	sink := &memSink{fail: true}
	c := New("server", sink)

	c.Attach(strings.NewReader("a\nb\nc\n"), strings.NewReader(""), nil, nil)
	// Wait returning at all proves append failures did not wedge the drain.
	c.Wait()
	if len(sink.all()) != 0 {
		t.Fatalf("failing sink should hold no entries")
	}
}

func TestCaptureNilSink(t *testing.T) {
	c := New("autotype", nil)
	c.Attach(strings.NewReader("no store\n"), strings.NewReader(""), nil, nil)
	c.Wait()
}

func TestCaptureLongLines(t *testing.T) {
	sink := &memSink{}
	c := New("server", sink)

	long := strings.Repeat("x", 100*1024)
	c.Attach(io.MultiReader(strings.NewReader(long), strings.NewReader("\n")), strings.NewReader(""), nil, nil)
	c.Wait()

	entries := sink.all()
	if len(entries) != 1 || len(entries[0].Message) != len(long) {
		t.Fatalf("long line not captured intact: %d entries", len(entries))
	}
}
