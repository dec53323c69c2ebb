package errors

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"olas.info/attest/pkg/log"
)

type Kind int

const (
	KindUnknown Kind = iota
	// malformed input, detected before any network call
	KindValidation
	// schema or attestation absent from the registry; an expected outcome
	KindNotFound
	// RPC unreachable, reverted or unconfirmed transaction
	KindChain
	// signature recovery or comparison failed
	KindSignature
	// an on-chain precondition (eg. an OlasHub profile) is missing
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindChain:
		return "chain"
	case KindSignature:
		return "signature"
	case KindPrecondition:
		return "precondition"
	}
	return "unknown"
}

// ExitCode is the process exit status used for errors of this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindValidation:
		return 2
	case KindNotFound:
		return 3
	case KindChain:
		return 4
	case KindSignature:
		return 5
	case KindPrecondition:
		return 6
	}
	return 1
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &Error{Kind: KindX}) match any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string, err error) error {
	return newError(KindValidation, msg, err)
}

func NotFound(msg string, err error) error {
	return newError(KindNotFound, msg, err)
}

func Chain(msg string, err error) error {
	return newError(KindChain, msg, err)
}

func Signature(msg string, err error) error {
	return newError(KindSignature, msg, err)
}

func Precondition(msg string, err error) error {
	return newError(KindPrecondition, msg, err)
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// Re-exports so callers importing this package don't also need the stdlib one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func New(text string) error {
	return errors.New(text)
}

// CLI errors
func WriteCLIError(w io.Writer, err error) int {
	kind := KindOf(err)
	label := color.New(color.FgRed, color.Bold).SprintFunc()
	if _, werr := fmt.Fprintf(w, "%s %s\n", label(fmt.Sprintf("[%s error]", kind)), err); werr != nil {
		log.Log(context.TODO(), "error writing CLI error", "error", err, "writeError", werr)
	}
	return kind.ExitCode()
}
