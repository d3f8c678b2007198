/*
Copyright 2026 The Relq Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package rqerrors provides the error handling primitives used across the
// compiler.
//
// Errors created here carry a Code and the stack of their creation site.
// The convention is simple: create leaf errors with New or Errorf, and
// annotate errors crossing a package boundary with Wrap or Wrapf, for
// example:
//
//	if err != nil {
//	        return rqerrors.Wrap(err, "rebuilding plan")
//	}
//
// Wrapping preserves the code of the original error. CodeOf retrieves the
// code of any error in the chain, RootCause the innermost error. Wrapped
// errors cooperate with errors.Is and errors.As through Unwrap.
//
// Printing an error with %v renders the full annotation chain; setting
// LogErrStacks (flag: --log_err_stacks) additionally renders the recorded
// stacks.
package rqerrors

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// LogErrStacks controls whether %v on errors from this package prints
// stack traces along with the messages.
var LogErrStacks bool

// RegisterFlags installs the package flags on the given flag set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&LogErrStacks, "log_err_stacks", false, "log stack traces for errors")
}

// New returns an error with the supplied message and code, recording the
// stack trace at the point it was called.
func New(code Code, message string) error {
	return &fundamental{
		msg:   message,
		code:  code,
		stack: callers(),
	}
}

// Errorf formats according to a format specifier and returns the string as
// an error value with the given code, recording the stack trace at the
// point it was called.
func Errorf(code Code, format string, args ...any) error {
	return &fundamental{
		msg:   fmt.Sprintf(format, args...),
		code:  code,
		stack: callers(),
	}
}

// Bug returns an Internal error whose message is prefixed with "[BUG]".
// It marks conditions that only an upstream coding mistake can produce.
func Bug(format string, args ...any) error {
	return Errorf(Internal, "[BUG] "+format, args...)
}

// fundamental is an error that has a message, a code and a stack, but no
// caller.
type fundamental struct {
	msg  string
	code Code
	*stack
}

func (f *fundamental) Error() string { return f.msg }

func (f *fundamental) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		panicIfError(io.WriteString(s, f.msg))
		if LogErrStacks || s.Flag('+') {
			f.stack.Format(s, verb)
		}
	case 's':
		panicIfError(io.WriteString(s, f.msg))
	case 'q':
		fmt.Fprintf(s, "%q", f.msg)
	}
}

// Wrap returns an error annotating err with a stack trace at the point
// Wrap is called, and the supplied message. If err is nil, Wrap returns
// nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapping{
		cause: err,
		msg:   message,
		stack: callers(),
	}
}

// Wrapf returns an error annotating err with a stack trace at the point
// Wrapf is called, and the format specifier. If err is nil, Wrapf returns
// nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapping{
		cause: err,
		msg:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

type wrapping struct {
	cause error
	msg   string
	*stack
}

func (w *wrapping) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *wrapping) Cause() error  { return w.cause }
func (w *wrapping) Unwrap() error { return w.cause }

func (w *wrapping) Format(s fmt.State, verb rune) {
	if verb == 'v' {
		panicIfError(fmt.Fprintf(s, "%v: %v", w.msg, w.cause))
		if LogErrStacks || s.Flag('+') {
			w.stack.Format(s, verb)
		}
		return
	}
	panicIfError(io.WriteString(s, w.Error()))
}

// CodeOf returns the code of the first coded error in err's chain, or
// Unknown when none carries one. A nil error has code OK; the context
// sentinels classify as Canceled and DeadlineExceeded.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if f, ok := e.(*fundamental); ok {
			return f.code
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return DeadlineExceeded
	}
	return Unknown
}

type causer interface {
	Cause() error
}

// Cause returns the underlying cause of err, if there is one, and nil
// otherwise. Unlike RootCause it distinguishes wrapped errors from leaves.
func Cause(err error) error {
	var cause error
	for err != nil {
		c, ok := err.(causer)
		if !ok {
			break
		}
		cause = c.Cause()
		err = cause
	}
	return cause
}

// RootCause unwraps err all the way down and returns the innermost error.
// An error without a cause is returned unchanged.
func RootCause(err error) error {
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		err = c.Cause()
	}
}

func panicIfError(_ any, err error) {
	if err != nil {
		panic(err)
	}
}
