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

// Code classifies an error so callers can react without string matching.
type Code int32

const (
	// OK is the code of a nil error. No real error carries it.
	OK Code = iota
	// Canceled means the operation was canceled, typically by the caller.
	Canceled
	// Unknown is the code of errors that did not originate in this
	// module and carry no recognizable classification.
	Unknown
	// InvalidArgument means the caller handed us something unusable,
	// like a plan whose root is not a join.
	InvalidArgument
	// DeadlineExceeded means the operation ran past its deadline.
	DeadlineExceeded
	// FailedPrecondition means the request was well-formed but the
	// surrounding state does not allow it, like a relation that
	// declares no key where one is required.
	FailedPrecondition
	// Unimplemented marks functionality that is recognized but not
	// supported.
	Unimplemented
	// Internal marks invariant violations: bugs in this module or in
	// the stages that feed it.
	Internal
)

var codeNames = map[Code]string{
	OK:                 "OK",
	Canceled:           "CANCELED",
	Unknown:            "UNKNOWN",
	InvalidArgument:    "INVALID_ARGUMENT",
	DeadlineExceeded:   "DEADLINE_EXCEEDED",
	FailedPrecondition: "FAILED_PRECONDITION",
	Unimplemented:      "UNIMPLEMENTED",
	Internal:           "INTERNAL",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
