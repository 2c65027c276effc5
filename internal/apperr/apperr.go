// Package apperr defines the error kinds shared by the dataset pipeline and
// the inference service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	// EmptyDataset means no labeled items were available to partition.
	EmptyDataset
	// InvalidConfig means configuration values are malformed (e.g. split ratios).
	InvalidConfig
	// IOFailure covers unreadable archives and failed writes.
	IOFailure
	// MissingArtifact means the model file is absent or could not be loaded.
	MissingArtifact
	// InvalidImage means uploaded content could not be decoded as an image.
	InvalidImage
)

func (k Kind) String() string {
	switch k {
	case EmptyDataset:
		return "empty dataset"
	case InvalidConfig:
		return "invalid config"
	case IOFailure:
		return "io failure"
	case MissingArtifact:
		return "missing artifact"
	case InvalidImage:
		return "invalid image"
	default:
		return "unknown error"
	}
}

// Sentinels for use with errors.Is.
var (
	ErrEmptyDataset    = &Error{Kind: EmptyDataset}
	ErrInvalidConfig   = &Error{Kind: InvalidConfig}
	ErrIOFailure       = &Error{Kind: IOFailure}
	ErrMissingArtifact = &Error{Kind: MissingArtifact}
	ErrInvalidImage    = &Error{Kind: InvalidImage}
)

// Error carries a Kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds an *Error. err may be nil.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error whose cause is a formatted message.
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
