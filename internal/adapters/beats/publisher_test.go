package beats

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	server "github.com/elastic/go-lumber/server/v2"
)

type fakeSender struct {
	events  []interface{}
	unacked int
	err     error
	closed  bool
}

func (f *fakeSender) Send(events []interface{}) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.events = append(f.events, events...)
	return len(events) - f.unacked, nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_BuildsEvent(t *testing.T) {
	fs := &fakeSender{}
	p := newPublisher(fs)

	if err := p.Publish(context.Background(), []byte("00 01 02 ")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(fs.events) != 1 {
		t.Fatalf("events = %d, want 1", len(fs.events))
	}
	event := fs.events[0].(map[string]interface{})
	if event["message"] != "00 01 02 " {
		t.Errorf("message = %v", event["message"])
	}
	if _, ok := event["@timestamp"]; !ok {
		t.Error("event missing @timestamp")
	}

	if err := p.Close(); err != nil || !fs.closed {
		t.Errorf("Close() error = %v, closed = %v", err, fs.closed)
	}
}

func TestPublisher_Errors(t *testing.T) {
	errConn := errors.New("connection reset")

	if err := newPublisher(&fakeSender{err: errConn}).Publish(context.Background(), []byte("x")); !errors.Is(err, errConn) {
		t.Errorf("Publish() error = %v, want %v", err, errConn)
	}
	if err := newPublisher(&fakeSender{unacked: 1}).Publish(context.Background(), []byte("x")); err == nil {
		t.Error("Publish() expected error when event is not acknowledged")
	}
}

// stuckSender blocks in Send until Close is called, like a client waiting
// for an ACK that never comes.
type stuckSender struct {
	started  chan struct{}
	released chan struct{}
	once     sync.Once
}

func (s *stuckSender) Send(events []interface{}) (int, error) {
	close(s.started)
	<-s.released
	return 0, errors.New("use of closed network connection")
}

func (s *stuckSender) Close() error {
	s.once.Do(func() { close(s.released) })
	return nil
}

func TestPublisher_CancelUnblocksSend(t *testing.T) {
	ss := &stuckSender{started: make(chan struct{}), released: make(chan struct{})}
	p := newPublisher(ss)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Publish(ctx, []byte("x")) }()

	<-ss.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Publish() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Publish() did not return after cancel")
	}

	if err := p.Publish(context.Background(), []byte("y")); err == nil {
		t.Error("Publish() after cancelled send should fail")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDial_RequiresAddress(t *testing.T) {
	if _, err := Dial(Config{}); err == nil {
		t.Fatal("Dial() expected error for empty address")
	}
}

func TestPublisher_LumberjackServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, err := server.NewWithListener(ln)
	if err != nil {
		t.Fatalf("start lumberjack server: %v", err)
	}
	defer srv.Close()

	received := make(chan interface{}, 1)
	go func() {
		batch := srv.Receive()
		if batch == nil {
			return
		}
		batch.ACK()
		if len(batch.Events) > 0 {
			received <- batch.Events[0]
		}
	}()

	p, err := Dial(Config{Address: ln.Addr().String(), Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer p.Close()

	if err := p.Publish(context.Background(), []byte("10 11 12 ")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case ev := <-received:
		fields, ok := ev.(map[string]interface{})
		if !ok {
			t.Fatalf("event type = %T, want map", ev)
		}
		if fields["message"] != "10 11 12 " {
			t.Errorf("message = %v", fields["message"])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not receive the event")
	}
}
