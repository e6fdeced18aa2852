package toolset

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors. Adapter errors carry context and are marked with one of
// these, so callers classify them with errors.Is.
var (
	// ErrNotAttached means a measurement was requested before a sink was attached.
	ErrNotAttached = errors.New("no experiment attached")

	// ErrUnsupportedLanguage means the product's language is not handled by the tool.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrUnknownMeasure means the tool does not produce the requested measure.
	ErrUnknownMeasure = errors.New("unknown measure")

	// ErrToolExecution means the external tool failed to run or produced no output.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrMalformedOutput means the tool's output did not match its expected schema.
	ErrMalformedOutput = errors.New("malformed tool output")
)

func malformedf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedOutput)
}

func wrapMalformed(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrMalformedOutput)
}

func wrapExecution(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrToolExecution)
}
