package frames2mod

import (
	"strconv"
	"strings"
)

// Kind classifies why an assembly failed.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindMedia
	KindCodec
	KindFS
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMedia:
		return "media"
	case KindCodec:
		return "codec"
	case KindFS:
		return "filesystem"
	}
	return "unknown"
}

// Sentinels for errors.Is, matched by Kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrMedia      = &Error{Kind: KindMedia}
	ErrCodec      = &Error{Kind: KindCodec}
	ErrFS         = &Error{Kind: KindFS}
)

// Error is returned by the Assembler. Path names the offending file or
// directory, Output holds verbatim output of an external process.
type Error struct {
	Kind   Kind
	Path   string
	Msg    string
	Output string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(e.Path))
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func validationError(path, msg string) *Error {
	return &Error{Kind: KindValidation, Path: path, Msg: msg}
}

func mediaError(path string, err error) *Error {
	return &Error{Kind: KindMedia, Path: path, Err: err}
}

func fsError(path, msg string, err error) *Error {
	return &Error{Kind: KindFS, Path: path, Msg: msg, Err: err}
}
