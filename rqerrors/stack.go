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

package rqerrors

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"
)

// Frame represents a program counter inside a stack frame.
type Frame uintptr

// pc returns the program counter for this frame; multiple frames may have
// the same PC value.
func (f Frame) pc() uintptr { return uintptr(f) - 1 }

// file returns the full path to the file that contains the function for
// this Frame's pc.
func (f Frame) file() string {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return "unknown"
	}
	file, _ := fn.FileLine(f.pc())
	return file
}

// line returns the line number of source code of the function for this
// Frame's pc.
func (f Frame) line() int {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return 0
	}
	_, line := fn.FileLine(f.pc())
	return line
}

// Format formats the frame according to the fmt.Formatter interface.
//
//	%s    source file
//	%d    source line
//	%n    function name
//	%v    equivalent to %s:%d
//
// Format accepts flags that alter the printing of some verbs, as follows:
//
//	%+s   function name and path of source file relative to the
//	      compile time GOPATH separated by \n\t (<funcname>\n\t<path>)
//	%+v   equivalent to %+s:%d
func (f Frame) Format(s fmt.State, verb rune) {
	switch verb {
	case 's':
		switch {
		case s.Flag('+'):
			pc := f.pc()
			fn := runtime.FuncForPC(pc)
			if fn == nil {
				panicIfError(io.WriteString(s, "unknown"))
			} else {
				file, _ := fn.FileLine(pc)
				panicIfError(fmt.Fprintf(s, "%s\n\t%s", fn.Name(), file))
			}
		default:
			panicIfError(io.WriteString(s, path.Base(f.file())))
		}
	case 'd':
		panicIfError(fmt.Fprintf(s, "%d", f.line()))
	case 'n':
		name := runtime.FuncForPC(f.pc()).Name()
		panicIfError(io.WriteString(s, funcname(name)))
	case 'v':
		f.Format(s, 's')
		panicIfError(io.WriteString(s, ":"))
		f.Format(s, 'd')
	}
}

// StackTrace is a stack of Frames from innermost (newest) to outermost
// (oldest).
type StackTrace []Frame

// Format formats the stack of Frames according to the fmt.Formatter
// interface.
func (st StackTrace) Format(s fmt.State, verb rune) {
	if verb != 'v' {
		return
	}
	switch {
	case s.Flag('+'):
		for _, f := range st {
			panicIfError(fmt.Fprintf(s, "\n%+v", f))
		}
	case s.Flag('#'):
		panicIfError(fmt.Fprintf(s, "%#v", []Frame(st)))
	default:
		panicIfError(fmt.Fprintf(s, "%v", []Frame(st)))
	}
}

// stack represents a stack of program counters.
type stack []uintptr

func (s *stack) Format(st fmt.State, verb rune) {
	if verb != 'v' {
		return
	}
	for _, pc := range *s {
		f := Frame(pc)
		panicIfError(fmt.Fprintf(st, "\n%+v", f))
	}
}

func (s *stack) StackTrace() StackTrace {
	f := make([]Frame, len(*s))
	for i := 0; i < len(f); i++ {
		f[i] = Frame((*s)[i])
	}
	return f
}

func callers() *stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st stack = pcs[0:n]
	return &st
}

// funcname removes the path prefix component of a function's name
// reported by func.Name().
func funcname(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}
