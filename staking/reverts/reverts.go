// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Code classifies why an operation was rejected.
type Code uint8

const (
	CodeValidation Code = iota + 1
	CodeTimelock
	CodeState
	CodeAuthorization
	CodeExternal
)

// String implements stringer.
func (c Code) String() string {
	switch c {
	case CodeValidation:
		return "validation"
	case CodeTimelock:
		return "timelock"
	case CodeState:
		return "state"
	case CodeAuthorization:
		return "authorization"
	case CodeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ErrRevert is a protocol-level rejection. Any operation failing with an
// ErrRevert leaves no partial effects behind.
type ErrRevert struct {
	code    Code
	message string
}

// New creates a revert with the given classification.
func New(code Code, message string) *ErrRevert {
	return &ErrRevert{
		code:    code,
		message: message,
	}
}

// NewValidation creates a validation revert.
func NewValidation(message string) *ErrRevert { return New(CodeValidation, message) }

// NewState creates a state revert.
func NewState(message string) *ErrRevert { return New(CodeState, message) }

// NewAuthorization creates an authorization revert.
func NewAuthorization(message string) *ErrRevert { return New(CodeAuthorization, message) }

// NewExternal creates an external-dependency revert.
func NewExternal(message string) *ErrRevert { return New(CodeExternal, message) }

func (e *ErrRevert) Error() string {
	return e.message
}

// Code returns the revert classification.
func (e *ErrRevert) Code() Code {
	return e.code
}

// ErrTimelock is a cooldown rejection carrying diagnostics for the caller.
type ErrTimelock struct {
	ErrRevert
	Required uint64 // seconds the caller must wait between actions
	Elapsed  uint64 // seconds elapsed since the last action
}

// NewTimelock creates a timelock revert.
func NewTimelock(action string, required, elapsed uint64) *ErrTimelock {
	return &ErrTimelock{
		ErrRevert: ErrRevert{
			code:    CodeTimelock,
			message: fmt.Sprintf("%s too soon: required interval %ds, elapsed %ds", action, required, elapsed),
		},
		Required: required,
		Elapsed:  elapsed,
	}
}

// IsRevert reports whether err is a protocol revert.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve != nil
	}
	var te *ErrTimelock
	return errors.As(err, &te)
}

// CodeOf returns the classification of a revert error.
func CodeOf(err error) (Code, bool) {
	var te *ErrTimelock
	if errors.As(err, &te) {
		return CodeTimelock, true
	}
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.code, true
	}
	return 0, false
}

// IsCode reports whether err is a revert of the given classification.
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
