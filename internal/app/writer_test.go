package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AndrewSilver/buswriter/internal/buffer"
	"github.com/AndrewSilver/buswriter/internal/domain"
)

// mockPublisher records payloads and fails the calls listed in failOn.
// With block set, calls wait for it to close unless blockIf rejects the
// payload.
type mockPublisher struct {
	mu       sync.Mutex
	payloads []string
	failOn   func(payload string) error
	block    chan struct{}
	blockIf  func(payload string) bool
}

func (m *mockPublisher) Publish(ctx context.Context, payload []byte) error {
	if m.block != nil && (m.blockIf == nil || m.blockIf(string(payload))) {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		if err := m.failOn(string(payload)); err != nil {
			return err
		}
	}
	m.payloads = append(m.payloads, string(payload))
	return nil
}

func (m *mockPublisher) Payloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.payloads...)
}

func TestWriter_StartStop(t *testing.T) {
	pub := &mockPublisher{}
	w := NewWriter(pub, WriterConfig{Threshold: 100, BatchSize: 10}, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if w.State() != StateRunning {
		t.Errorf("state = %v, want Running", w.State())
	}
	if err := w.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := w.SendMessage(context.Background(), domain.Message("tail")); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.SendMessageToBuffer(domain.Message("m")); err != nil {
			t.Fatalf("SendMessageToBuffer() error = %v", err)
		}
	}

	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", w.State())
	}

	got := pub.Payloads()
	if len(got) != 2 {
		t.Fatalf("payloads = %q, want the trailing batch and the final flush", got)
	}
	joined := strings.Join(got, "|")
	if !strings.Contains(joined, "mmm") || !strings.Contains(joined, "tail") {
		t.Errorf("payloads = %q", got)
	}

	if err := w.Stop(context.Background()); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}
	if err := w.SendMessageToBuffer(domain.Message("late")); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("SendMessageToBuffer() after Stop error = %v, want ErrClosed", err)
	}
	if err := w.Start(context.Background()); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("restart error = %v, want ErrClosed", err)
	}
}

func TestWriter_BatchFailureDoesNotStopConsumer(t *testing.T) {
	errDown := errors.New("bus down")
	pub := &mockPublisher{failOn: func(p string) error {
		if strings.HasPrefix(p, "b") {
			return errDown
		}
		return nil
	}}
	w := NewWriter(pub, WriterConfig{BatchSize: 2}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, m := range []string{"a", "a", "b", "b", "c", "c"} {
		if err := w.SendMessageToBuffer(domain.Message(m)); err != nil {
			t.Fatalf("SendMessageToBuffer() error = %v", err)
		}
	}

	err := w.Stop(context.Background())
	if !errors.Is(err, errDown) {
		t.Fatalf("Stop() error = %v, want %v", err, errDown)
	}
	var pubErr *domain.PublishError
	if !errors.As(err, &pubErr) || len(pubErr.Messages) != 2 {
		t.Errorf("Stop() error = %v, want PublishError with the lost batch", err)
	}
	if w.State() != StateCrashed {
		t.Errorf("state = %v, want Crashed", w.State())
	}

	if got := pub.Payloads(); len(got) != 2 || got[0] != "aa" || got[1] != "cc" {
		t.Errorf("payloads = %q, want [aa cc]", got)
	}
}

func TestWriter_StopTimeout(t *testing.T) {
	pub := &mockPublisher{block: make(chan struct{})}
	defer close(pub.block)

	w := NewWriter(pub, WriterConfig{BatchSize: 1, ShutdownTimeout: 20 * time.Millisecond}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.SendMessageToBuffer(domain.Message("stuck")); err != nil {
		t.Fatalf("SendMessageToBuffer() error = %v", err)
	}

	if err := w.Stop(context.Background()); !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Fatalf("Stop() error = %v, want ErrShutdownTimeout", err)
	}
	if w.State() != StateCrashed {
		t.Errorf("state = %v, want Crashed", w.State())
	}
}

func TestWriter_StartContextCancelKeepsBatches(t *testing.T) {
	pub := &mockPublisher{}
	w := NewWriter(pub, WriterConfig{BatchSize: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	for i := 0; i < 25; i++ {
		if err := w.SendMessageToBuffer(domain.Message("m")); err != nil {
			t.Fatalf("SendMessageToBuffer() error = %v", err)
		}
	}

	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	got := pub.Payloads()
	if len(got) != 3 || len(got[0]) != 10 || len(got[1]) != 10 || len(got[2]) != 5 {
		t.Errorf("payloads = %q, want batches of 10, 10 and 5", got)
	}
}

func TestWriter_StopTimeoutStillFlushesBuffer(t *testing.T) {
	pub := &mockPublisher{
		block:   make(chan struct{}),
		blockIf: func(p string) bool { return p == "stuck" },
	}
	defer close(pub.block)

	w := NewWriter(pub, WriterConfig{BatchSize: 1, ShutdownTimeout: 20 * time.Millisecond}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.SendMessage(context.Background(), domain.Message("buffered-tail")); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if err := w.SendMessageToBuffer(domain.Message("stuck")); err != nil {
		t.Fatalf("SendMessageToBuffer() error = %v", err)
	}

	if err := w.Stop(context.Background()); !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Fatalf("Stop() error = %v, want ErrShutdownTimeout", err)
	}
	if got := pub.Payloads(); len(got) != 1 || got[0] != "buffered-tail" {
		t.Errorf("payloads = %q, want [buffered-tail]", got)
	}
}

func TestWriter_FinalFlushFailure(t *testing.T) {
	errDown := errors.New("bus down")
	pub := &mockPublisher{failOn: func(string) error { return errDown }}
	w := NewWriter(pub, WriterConfig{FlushMode: buffer.FlushDetached}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.SendMessage(context.Background(), domain.Message("pending")); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if err := w.Stop(context.Background()); !errors.Is(err, errDown) {
		t.Fatalf("Stop() error = %v, want %v", err, errDown)
	}
}

func TestWriter_SetThreshold(t *testing.T) {
	pub := &mockPublisher{}
	w := NewWriter(pub, WriterConfig{Threshold: 100}, nil)

	w.SetThreshold(3)
	if err := w.SendMessage(context.Background(), domain.Message("four")); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got := pub.Payloads(); len(got) != 1 || got[0] != "four" {
		t.Errorf("payloads = %q, want [four]", got)
	}
}
