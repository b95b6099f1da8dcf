// Package report renders scan results for a terminal. It only formats; all
// scanning happens in internal/scan.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/songzhibin97/go-baseutils/base/options"

	"github.com/songzhibin97/port_probe/diagnostic"
	"github.com/songzhibin97/port_probe/internal/portspec"
	"github.com/songzhibin97/port_probe/internal/scan"
)

const (
	barWidth  = 50
	ruleWidth = 50
)

type styles struct {
	open   lipgloss.Style
	closed lipgloss.Style
	port   lipgloss.Style
	svc    lipgloss.Style
	dim    lipgloss.Style
	accent lipgloss.Style
	warn   lipgloss.Style
}

type Reporter struct {
	w        io.Writer
	color    bool
	progress bool
	now      func() time.Time
	styles   styles
	// width of the progress line on screen, zero when none is drawn
	drawn    int
}

// WithColor forces color on or off instead of detecting a terminal.
func WithColor(enable bool) options.Option[*Reporter] {
	return func(r *Reporter) {
		r.color = enable
	}
}

// WithProgress enables the in-place progress bar.
func WithProgress(enable bool) options.Option[*Reporter] {
	return func(r *Reporter) {
		r.progress = enable
	}
}

func withClock(now func() time.Time) options.Option[*Reporter] {
	return func(r *Reporter) {
		r.now = now
	}
}

func New(w io.Writer, options ...options.Option[*Reporter]) *Reporter {
	r := &Reporter{
		w:        w,
		color:    IsTerminal(w) && os.Getenv("NO_COLOR") == "",
		progress: IsTerminal(w),
		now:      time.Now,
	}
	for _, option := range options {
		option(r)
	}
	r.styles = newStyles(w, r.color)
	return r
}

// IsTerminal reports whether w is a character device we can draw on.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newStyles(w io.Writer, color bool) styles {
	renderer := lipgloss.NewRenderer(w)
	if !color {
		plain := renderer.NewStyle()
		return styles{open: plain, closed: plain, port: plain, svc: plain, dim: plain, accent: plain, warn: plain}
	}
	return styles{
		open:   renderer.NewStyle().Foreground(lipgloss.Color("2")),
		closed: renderer.NewStyle().Foreground(lipgloss.Color("1")),
		port:   renderer.NewStyle().Bold(true),
		svc:    renderer.NewStyle().Foreground(lipgloss.Color("6")),
		dim:    renderer.NewStyle().Foreground(lipgloss.Color("8")),
		accent: renderer.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		warn:   renderer.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// Header prints the scan banner: target, ports and start time.
func (r *Reporter) Header(host string, ports []int) {
	heavy := r.styles.accent.Render(strings.Repeat("═", ruleWidth))
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, heavy)
	fmt.Fprintln(r.w, r.styles.accent.Render("  PORT PROBE"))
	fmt.Fprintln(r.w, heavy)
	fmt.Fprintf(r.w, "  Target: %s\n", r.styles.port.Render(host))
	fmt.Fprintf(r.w, "  Ports:  %s (%d ports)\n", r.styles.warn.Render(portspec.Describe(ports)), len(ports))
	fmt.Fprintf(r.w, "  Time:   %s\n", r.styles.dim.Render(r.now().Format(time.DateTime)))
	fmt.Fprintln(r.w, r.styles.accent.Render(strings.Repeat("─", ruleWidth)))
	fmt.Fprintln(r.w)
}

// Result prints one reported port.
func (r *Reporter) Result(res scan.AnnotatedResult) {
	r.clear()
	if res.Status == scan.StatusOpen {
		line := fmt.Sprintf("  %s    %s %s",
			r.styles.open.Render("OPEN"),
			r.styles.port.Render(fmt.Sprintf("%-7d", res.Port)),
			r.styles.svc.Render(res.Service))
		if res.HasBanner() {
			line += " " + r.styles.dim.Render("| "+Sanitize(res.Banner))
		}
		fmt.Fprintln(r.w, line)
		return
	}
	line := fmt.Sprintf("  %s  %s", r.styles.closed.Render("CLOSED"), r.styles.dim.Render(strconv.Itoa(res.Port)))
	if cause := res.Cause(); cause != "" {
		line += " " + r.styles.dim.Render("("+string(cause)+")")
	}
	fmt.Fprintln(r.w, line)
}

// Progress redraws the progress bar in place. It is a no-op when progress is
// disabled.
func (r *Reporter) Progress(p scan.Progress) {
	if !r.progress {
		return
	}
	filled := p.Percent() / 2
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	line := "  " + r.styles.dim.Render(fmt.Sprintf("Progress: [%s] %d%% (%d/%d)", bar, p.Percent(), p.Scanned, p.Total))
	fmt.Fprint(r.w, "\r"+line)
	r.drawn = max(r.drawn, lipgloss.Width(line))
}

func (r *Reporter) clear() {
	if r.drawn == 0 {
		return
	}
	fmt.Fprint(r.w, "\r"+strings.Repeat(" ", r.drawn)+"\r")
	r.drawn = 0
}

// Notices prints scan-level diagnostics, one per line. Nothing is printed
// when there are none.
func (r *Reporter) Notices(ds *diagnostic.Diagnostics) {
	if ds == nil || ds.IsEmpty() {
		return
	}
	r.clear()
	for _, d := range ds.GetDiagnosticSlice() {
		style := r.styles.warn
		if d.Level() >= diagnostic.DiagnosisLevelError {
			style = r.styles.closed
		} else if d.Level() < diagnostic.DiagnosisLevelWarn {
			style = r.styles.dim
		}
		fmt.Fprintf(r.w, "  %s\n", style.Render(d.String()))
	}
}

// Summary prints the final counts and elapsed time.
func (r *Reporter) Summary(s scan.Summary) {
	r.clear()
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.styles.accent.Render(strings.Repeat("─", ruleWidth)))
	fmt.Fprintf(r.w, "  %s / %s / %d total\n",
		r.styles.open.Render(fmt.Sprintf("%d open", s.Open)),
		r.styles.dim.Render(fmt.Sprintf("%d closed", s.Closed)),
		s.Total)
	if s.Canceled {
		fmt.Fprintf(r.w, "  %s\n", r.styles.warn.Render("Scan interrupted before all ports were probed"))
	}
	fmt.Fprintln(r.w, r.styles.accent.Render(strings.Repeat("═", ruleWidth)))
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "  %s\n\n", r.styles.dim.Render(fmt.Sprintf("Scan completed in %.2fs", s.Elapsed.Seconds())))
}

// Sanitize flattens a banner onto one printable line.
func Sanitize(b []byte) string {
	s := strings.ToValidUTF8(string(b), "?")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\r' || r == '\n' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return '.'
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
