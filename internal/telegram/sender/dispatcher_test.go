package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			ran.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	d.Close()

	if got := ran.Load(); got != 5 {
		t.Fatalf("ran %d jobs, want 5", got)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("error count = %d, want 0", d.ErrorCount())
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 4})

	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		return errors.New("telegram says no")
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()

	if d.ErrorCount() != 1 {
		t.Fatalf("error count = %d, want 1", d.ErrorCount())
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()

	release := make(chan struct{})
	// Occupy the single worker, then fill the single queue slot.
	_ = d.Enqueue(context.Background(), "a", "", func() error {
		<-release
		return nil
	})

	var full bool
	deadline := time.After(time.Second)
	for !full {
		select {
		case <-deadline:
			t.Fatal("queue never filled")
		default:
		}
		err := d.Enqueue(context.Background(), "b", "", func() error { return nil })
		if errors.Is(err, ErrQueueFull) {
			full = true
		}
	}
	close(release)
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Enqueue(context.Background(), "a", "", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAH-secret_token/sendMessage": timeout`)
	got := sanitizeErrorMessage(err)
	want := `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`
	if got != want {
		t.Fatalf("sanitize = %q, want %q", got, want)
	}
	if sanitizeErrorMessage(nil) != "" {
		t.Fatal("nil error must sanitize to empty string")
	}
}

func TestClassifyError(t *testing.T) {
	if kind := classifyError(context.DeadlineExceeded); kind != "timeout" {
		t.Fatalf("deadline classified as %q", kind)
	}
	if kind := classifyError(errors.New("telegram: Bad Request (400)")); kind != "http_4xx" {
		t.Fatalf("trailing code classified as %q", kind)
	}
	if kind := classifyError(errors.New("telegram: Internal Server Error (500)")); kind != "http_5xx" {
		t.Fatalf("trailing code classified as %q", kind)
	}
	if kind := classifyError(errors.New("who knows")); kind != "unknown" {
		t.Fatalf("unknown classified as %q", kind)
	}
}
