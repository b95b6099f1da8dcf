package scan

import (
	"context"
	"net"
	"testing"
	"time"
)

// serve runs handle for every accepted connection on a loopback listener.
func serve(t *testing.T, handle func(c net.Conn)) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				handle(c)
			}()
		}
	}()
	return l.Addr().(*net.TCPAddr).Port
}

func TestBannerCollector_RespondsToTrigger(t *testing.T) {
	received := make(chan string, 1)
	port := serve(t, func(c net.Conn) {
		buf := make([]byte, 16)
		n, err := c.Read(buf)
		if err != nil {
			return
		}
		received <- string(buf[:n])
		_, _ = c.Write([]byte("SSH-2.0-OpenSSH_8.9\r\n"))
		time.Sleep(100 * time.Millisecond)
	})

	b := NewBannerCollector(WithTimeout(time.Second))
	res := b.Grab(context.Background(), "127.0.0.1", port)
	if res.Absent() {
		t.Fatalf("expected a banner")
	}
	if got := string(res.Banner); got != "SSH-2.0-OpenSSH_8.9" {
		t.Fatalf("expected trimmed banner, got %q", got)
	}
	if res.Port != port {
		t.Fatalf("expected port %d, got %d", port, res.Port)
	}
	if got := <-received; got != "\r\n" {
		t.Fatalf("expected CRLF trigger, got %q", got)
	}
}

func TestBannerCollector_ReturnsFirstChunk(t *testing.T) {
	port := serve(t, func(c net.Conn) {
		_, _ = c.Write([]byte("  220 mail.example ESMTP\r\n"))
		time.Sleep(150 * time.Millisecond)
		_, _ = c.Write([]byte("250 more lines that are never awaited\r\n"))
		time.Sleep(100 * time.Millisecond)
	})

	b := NewBannerCollector(WithTimeout(2 * time.Second))
	start := time.Now()
	res := b.Grab(context.Background(), "127.0.0.1", port)
	if got := string(res.Banner); got != "220 mail.example ESMTP" {
		t.Fatalf("unexpected banner %q", got)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Fatalf("collector must return on the first data, took %v", elapsed)
	}
}

func TestBannerCollector_SilentIsAbsent(t *testing.T) {
	port := serve(t, func(c net.Conn) {
		time.Sleep(time.Second)
	})

	timeout := 150 * time.Millisecond
	b := NewBannerCollector(WithTimeout(5*time.Second), WithBannerTimeout(timeout))
	start := time.Now()
	res := b.Grab(context.Background(), "127.0.0.1", port)
	elapsed := time.Since(start)

	if !res.Absent() || res.Banner != nil {
		t.Fatalf("expected absent banner, got %q", res.Banner)
	}
	if elapsed < timeout-10*time.Millisecond || elapsed > timeout+time.Second {
		t.Fatalf("expected return at about %v, took %v", timeout, elapsed)
	}
}

func TestBannerCollector_AbsentCases(t *testing.T) {
	whitespace := serve(t, func(c net.Conn) {
		_, _ = c.Write([]byte(" \r\n\t "))
		time.Sleep(100 * time.Millisecond)
	})
	hangup := serve(t, func(c net.Conn) {})

	cases := map[string]int{
		"closed port":     closedPort(t),
		"whitespace only": whitespace,
		"immediate close": hangup,
	}
	b := NewBannerCollector(WithTimeout(500 * time.Millisecond))
	for name, port := range cases {
		t.Run(name, func(t *testing.T) {
			if res := b.Grab(context.Background(), "127.0.0.1", port); !res.Absent() {
				t.Fatalf("expected absent, got %q", res.Banner)
			}
		})
	}
}

func TestBannerCollector_NoTrigger(t *testing.T) {
	received := make(chan int, 1)
	port := serve(t, func(c net.Conn) {
		_ = c.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, _ := c.Read(make([]byte, 16))
		received <- n
		_, _ = c.Write([]byte("hello"))
		time.Sleep(50 * time.Millisecond)
	})

	b := NewBannerCollector(WithTimeout(time.Second), WithTrigger(nil))
	res := b.Grab(context.Background(), "127.0.0.1", port)
	if string(res.Banner) != "hello" {
		t.Fatalf("unexpected banner %q", res.Banner)
	}
	if n := <-received; n != 0 {
		t.Fatalf("expected nothing sent without a trigger, server read %d bytes", n)
	}
}

func TestBannerCollector_BufferLimit(t *testing.T) {
	port := serve(t, func(c net.Conn) {
		_, _ = c.Write([]byte("abcdefghij"))
		time.Sleep(50 * time.Millisecond)
	})

	b := NewBannerCollector(WithTimeout(time.Second), WithBannerBuffer(4))
	if res := b.Grab(context.Background(), "127.0.0.1", port); string(res.Banner) != "abcd" {
		t.Fatalf("expected banner cut at buffer size, got %q", res.Banner)
	}
}

func TestBannerCollector_CancelInterruptsRead(t *testing.T) {
	port := serve(t, func(c net.Conn) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	b := NewBannerCollector(WithTimeout(5 * time.Second))
	start := time.Now()
	res := b.Grab(ctx, "127.0.0.1", port)
	if !res.Absent() {
		t.Fatalf("expected absent banner, got %q", res.Banner)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation did not interrupt the read, took %v", elapsed)
	}
}
