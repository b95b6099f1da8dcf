package diagnostic

import (
	"fmt"
	"strings"

	"github.com/songzhibin97/go-baseutils/base/banytostring"
)

type Level int

const (
	DiagnosisLevelTrace Level = iota
	DiagnosisLevelDebug
	DiagnosisLevelInfo
	DiagnosisLevelWarn
	DiagnosisLevelError
	DiagnosisLevelFatal
)

func (x Level) String() string {
	switch x {
	case DiagnosisLevelTrace:
		return "trace"
	case DiagnosisLevelDebug:
		return "debug"
	case DiagnosisLevelInfo:
		return "info"
	case DiagnosisLevelWarn:
		return "warn"
	case DiagnosisLevelError:
		return "error"
	case DiagnosisLevelFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ------------------------------------------------- -------------------------------------------------------------------

// Diagnostic carries one observation about a probe or a scan. A probe diagnostic
// also records the Cause that made a port look closed.
type Diagnostic struct {
	level   Level
	cause   Cause
	content any
}

func (x *Diagnostic) String() string {
	prefix := fmt.Sprintf("[ %s ] ", x.Level().String())
	if x.cause != CauseNone {
		prefix += "(" + string(x.cause) + ") "
	}
	return prefix + banytostring.ToString(x.Content())
}

func NewDiagnostic(level Level, content any) *Diagnostic {
	return &Diagnostic{
		level:   level,
		content: content,
	}
}

// NewCauseDiagnostic classifies err and keeps its text as the content.
// A nil err yields nil.
func NewCauseDiagnostic(level Level, err error) *Diagnostic {
	if err == nil {
		return nil
	}
	return &Diagnostic{
		level:   level,
		cause:   Classify(err),
		content: err.Error(),
	}
}

func NewInfoDiagnostic(content any) *Diagnostic {
	return NewDiagnostic(DiagnosisLevelInfo, content)
}

func NewWarnDiagnostic(content any) *Diagnostic {
	return NewDiagnostic(DiagnosisLevelWarn, content)
}

func (x *Diagnostic) Level() Level {
	return x.level
}

// Cause is CauseNone for diagnostics that were not built from an error.
func (x *Diagnostic) Cause() Cause {
	if x == nil {
		return CauseNone
	}
	return x.cause
}

func (x *Diagnostic) Content() any {
	return x.content
}

// ------------------------------------------------- -------------------------------------------------------------------

// Diagnostics Represents a series of diagnostic information.
// It is not safe for concurrent use.
type Diagnostics struct {

	// Check whether the collected diagnosis information contains ERROR or later diagnosis information
	hasError bool

	// Multiple diagnoses, and there's an order between them
	diagnostics []*Diagnostic
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		diagnostics: make([]*Diagnostic, 0),
	}
}

func (x *Diagnostics) AddInfo(format string, args ...any) *Diagnostics {
	return x._append(NewInfoDiagnostic(fmt.Sprintf(format, args...)))
}

func (x *Diagnostics) AddWarn(format string, args ...any) *Diagnostics {
	return x._append(NewWarnDiagnostic(fmt.Sprintf(format, args...)))
}

func (x *Diagnostics) AddError(err error) *Diagnostics {
	if err == nil {
		return x
	}
	return x._append(NewCauseDiagnostic(DiagnosisLevelError, err))
}

func (x *Diagnostics) AddDiagnostic(diagnostic *Diagnostic) *Diagnostics {
	if diagnostic != nil {
		x._append(diagnostic)
	}
	return x
}

func (x *Diagnostics) GetDiagnosticSlice() []*Diagnostic {
	return x.diagnostics
}

func (x *Diagnostics) Size() int {
	return len(x.diagnostics)
}

func (x *Diagnostics) IsEmpty() bool {
	return x.Size() == 0
}

func (x *Diagnostics) HasError() bool {
	return x.hasError
}

func (x *Diagnostics) String() string {
	builder := strings.Builder{}
	for index, diagnostic := range x.diagnostics {
		builder.WriteString(diagnostic.String())
		if index < len(x.diagnostics)-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// All additional diagnostic information must be updated using this method and cannot be added directly to the data
func (x *Diagnostics) _append(diagnostic *Diagnostic) *Diagnostics {
	if diagnostic.Level() >= DiagnosisLevelError {
		x.hasError = true
	}
	x.diagnostics = append(x.diagnostics, diagnostic)
	return x
}
