package tcpserver

import (
	"net"
	"testing"
	"time"

	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

type chanRouter chan model.Entry

func (r chanRouter) Route(e model.Entry) { r <- e }

func startTestServer(t *testing.T) (*Server, chanRouter, *registry.Sources) {
	t.Helper()
	router := make(chanRouter, 64)
	sources := registry.NewSources()
	s := NewServer("127.0.0.1:0", router, sources)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s, router, sources
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func nextEntry(t *testing.T, r chanRouter) model.Entry {
	t.Helper()
	select {
	case e := <-r:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for entry")
		return model.Entry{}
	}
}

func TestNewServer_DefaultLocalhostAddress(t *testing.T) {
	t.Parallel()

	s := NewServer("", nil, registry.NewSources())
	if got := s.Addr(); got != "127.0.0.1:6777" {
		t.Fatalf("Addr() = %q, want %q", got, "127.0.0.1:6777")
	}
}

func TestNewServer_UsesConfiguredAddressAndLineSize(t *testing.T) {
	t.Parallel()

	s := NewServer("0.0.0.0:5000", nil, registry.NewSources(), ServerConfig{MaxLineSize: 2048})

	if got := s.Addr(); got != "0.0.0.0:5000" {
		t.Fatalf("Addr() = %q, want %q", got, "0.0.0.0:5000")
	}
	if got := s.maxLineSize; got != 2048 {
		t.Fatalf("max line size = %d, want %d", got, 2048)
	}
}

func TestServer_PusherLifecycle(t *testing.T) {
	t.Parallel()

	s, router, sources := startTestServer(t)
	conn := dial(t, s.Addr())

	if _, err := conn.Write([]byte("tail /var/log/app.log\nhello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	e := nextEntry(t, router)
	if e.Log != "/var/log/app.log" || e.Entries[0] != "hello" {
		t.Fatalf("entry = %+v", e)
	}
	if !sources.Active("/var/log/app.log") {
		t.Fatal("path should be active while the pusher is connected")
	}

	conn.Close()
	waitFor(t, func() bool { return !sources.Active("/var/log/app.log") })
}

func TestServer_MalformedHeaderDoesNotAffectOtherPushers(t *testing.T) {
	t.Parallel()

	s, router, sources := startTestServer(t)
	good := dial(t, s.Addr())
	bad := dial(t, s.Addr())

	if _, err := good.Write([]byte("tail good\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return sources.Active("good") })

	if _, err := bad.Write([]byte("onlyonetoken\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := bad.Read(make([]byte, 1)); err == nil {
		t.Fatal("malformed pusher should be disconnected")
	}

	if _, err := good.Write([]byte("still here\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if e := nextEntry(t, router); e.Entries[0] != "still here" {
		t.Fatalf("entry = %+v", e)
	}
	if sources.Len() != 1 {
		t.Fatalf("sources.Len() = %d, want 1", sources.Len())
	}
}

func TestServer_LinesFromOnePusherKeepOrder(t *testing.T) {
	t.Parallel()

	s, router, _ := startTestServer(t)
	conn := dial(t, s.Addr())

	payload := "tail ordered\n"
	for _, l := range []string{"1", "2", "3", "4", "5"} {
		payload += l + "\n"
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, want := range []string{"1", "2", "3", "4", "5"} {
		if got := nextEntry(t, router).Entries[0]; got != want {
			t.Fatalf("line = %q, want %q", got, want)
		}
	}
}

func TestServer_StopReleasesAllPaths(t *testing.T) {
	t.Parallel()

	s, _, sources := startTestServer(t)
	for _, p := range []string{"a", "b", "c"} {
		conn := dial(t, s.Addr())
		if _, err := conn.Write([]byte("tail " + p + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	waitFor(t, func() bool { return sources.Len() == 3 })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sources.Len() != 0 {
		t.Fatalf("sources.Len() = %d after Stop, want 0", sources.Len())
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
