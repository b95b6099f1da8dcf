package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/songzhibin97/port_probe/diagnostic"
	"github.com/songzhibin97/port_probe/internal/scan"
)

func newTestReporter(buf *bytes.Buffer, progress bool) *Reporter {
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return New(buf, WithColor(false), WithProgress(progress), withClock(func() time.Time { return fixed }))
}

func TestReporter_Header(t *testing.T) {
	var buf bytes.Buffer
	newTestReporter(&buf, false).Header("scanme.example", []int{1, 2, 3})

	out := buf.String()
	for _, want := range []string{"PORT PROBE", "Target: scanme.example", "Ports:  1 - 3 (3 ports)", "Time:   2024-05-01 12:30:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("header missing %q:\n%s", want, out)
		}
	}
}

func TestReporter_Result(t *testing.T) {
	cases := []struct {
		name string
		res  scan.AnnotatedResult
		want string
	}{
		{
			name: "open",
			res:  scan.AnnotatedResult{Port: 80, Status: scan.StatusOpen, Service: "HTTP"},
			want: "  OPEN    80      HTTP\n",
		},
		{
			name: "open with banner",
			res:  scan.AnnotatedResult{Port: 22, Status: scan.StatusOpen, Service: "SSH", Banner: []byte("SSH-2.0-OpenSSH_8.9\r\nextra")},
			want: "  OPEN    22      SSH | SSH-2.0-OpenSSH_8.9 extra\n",
		},
		{
			name: "closed",
			res:  scan.AnnotatedResult{Port: 81, Status: scan.StatusClosed, Service: "Unknown"},
			want: "  CLOSED  81\n",
		},
		{
			name: "closed with cause",
			res: scan.AnnotatedResult{Port: 81, Status: scan.StatusClosed,
				Diagnostic: diagnostic.NewCauseDiagnostic(diagnostic.DiagnosisLevelTrace, context.DeadlineExceeded)},
			want: "  CLOSED  81 (timeout)\n",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			newTestReporter(&buf, false).Result(c.res)
			if got := buf.String(); got != c.want {
				t.Fatalf("got %q want %q", got, c.want)
			}
		})
	}
}

func TestReporter_ProgressAndSummary(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, true)

	r.Progress(scan.Progress{Scanned: 512, Open: 1, Total: 1024})
	drawn := lipgloss.Width(strings.TrimPrefix(buf.String(), "\r"))
	if !strings.Contains(buf.String(), "50% (512/1024)") {
		t.Fatalf("unexpected progress line %q", buf.String())
	}
	if strings.Count(buf.String(), "█") != 25 || strings.Count(buf.String(), "░") != 25 {
		t.Fatalf("expected a half-filled bar, got %q", buf.String())
	}

	buf.Reset()
	r.Summary(scan.Summary{Open: 2, Closed: 1022, Total: 1024, Elapsed: 1234 * time.Millisecond})
	out := buf.String()
	if !strings.HasPrefix(out, "\r"+strings.Repeat(" ", drawn)+"\r") {
		t.Fatalf("summary should clear the progress line first: %q", out)
	}
	for _, want := range []string{"2 open / 1022 closed / 1024 total", "Scan completed in 1.23s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "interrupted") {
		t.Fatalf("uncanceled summary mentions interruption")
	}
}

func TestReporter_ClearCoversWideProgress(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, true)

	r.Progress(scan.Progress{Scanned: 100, Total: 65535})
	r.Progress(scan.Progress{Scanned: 65535, Open: 3, Total: 65535})
	lines := strings.Split(buf.String(), "\r")
	last := lines[len(lines)-1]
	if !strings.Contains(last, "100% (65535/65535)") {
		t.Fatalf("unexpected progress line %q", last)
	}
	width := lipgloss.Width(last)
	if width <= 80 {
		t.Fatalf("expected a line wider than 80 columns, got %d", width)
	}

	buf.Reset()
	r.Result(scan.AnnotatedResult{Port: 443, Status: scan.StatusOpen, Service: "HTTPS"})
	want := "\r" + strings.Repeat(" ", width) + "\r  OPEN    443     HTTPS\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	buf.Reset()
	r.Result(scan.AnnotatedResult{Port: 444, Status: scan.StatusOpen, Service: "Unknown"})
	if strings.HasPrefix(buf.String(), "\r") {
		t.Fatalf("nothing left to clear, got %q", buf.String())
	}
}

func TestReporter_Notices(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, false)

	r.Notices(diagnostic.NewDiagnostics())
	r.Notices(nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	ds := diagnostic.NewDiagnostics().
		AddWarn("example.net has no IPv4 address, scanning 2001:db8::1").
		AddError(context.Canceled)
	r.Notices(ds)
	want := "  [ warn ] example.net has no IPv4 address, scanning 2001:db8::1\n" +
		"  [ error ] (canceled) context canceled\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestReporter_ProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, false)
	r.Progress(scan.Progress{Scanned: 1, Total: 2})
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	r.Summary(scan.Summary{Canceled: true})
	if !strings.Contains(buf.String(), "interrupted") {
		t.Fatalf("canceled summary should say so: %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Fatalf("a buffer is not a terminal")
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"SSH-2.0-OpenSSH_8.9":          "SSH-2.0-OpenSSH_8.9",
		"220 ready\r\n250 ok":          "220 ready 250 ok",
		"a\x00b\x07c":                  "a.b.c",
		"  spaced \t\t out  ":          "spaced out",
		string([]byte{0xff, 'o', 'k'}): "?ok",
	}
	for in, want := range cases {
		if got := Sanitize([]byte(in)); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
