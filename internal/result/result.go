// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package result

import (
	"errors"
	"slices"
)

// Detail is the optional payload attached to a Result.
//
// Color is set on successful marker updates. RecordsAffected is set on page
// failures and counts the records the failed page would have covered.
type Detail struct {
	Code            Code
	Color           string
	RecordsAffected int
	Warnings        []Code
}

// Result is an immutable success-or-failure outcome. The zero value is not a
// valid Result; use Ok or Fail.
type Result[T any] struct {
	value     T
	err       error
	detail    Detail
	hasDetail bool
	valid     bool
}

// Ok constructs a successful Result carrying v and an optional detail.
func Ok[T any](v T, detail ...Detail) Result[T] {
	r := Result[T]{value: v, valid: true}
	r.setDetail(detail)
	return r
}

// Fail constructs a failed Result. A nil err is a programming error and panics.
func Fail[T any](err error, detail ...Detail) Result[T] {
	if err == nil {
		panic("result: Fail called with nil error")
	}
	r := Result[T]{err: err, valid: true}
	r.setDetail(detail)
	return r
}

// Failf is Fail with a plain message.
func Failf[T any](msg string, detail ...Detail) Result[T] {
	return Fail[T](errors.New(msg), detail...)
}

func (r *Result[T]) setDetail(detail []Detail) {
	if len(detail) == 0 {
		return
	}
	d := detail[0]
	d.Warnings = slices.Clone(d.Warnings)
	r.detail = d
	r.hasDetail = true
}

// IsSuccess reports whether r is a success.
func (r Result[T]) IsSuccess() bool {
	r.mustBeValid()
	return r.err == nil
}

// IsFailure reports whether r is a failure.
func (r Result[T]) IsFailure() bool {
	return !r.IsSuccess()
}

// Value returns the success value. It panics on a failure.
func (r Result[T]) Value() T {
	if r.IsFailure() {
		panic("result: Value called on failure: " + r.err.Error())
	}
	return r.value
}

// Get returns the value and error in the usual Go shape.
func (r Result[T]) Get() (T, error) {
	r.mustBeValid()
	return r.value, r.err
}

// Err returns the failure error, or nil on success.
func (r Result[T]) Err() error {
	r.mustBeValid()
	return r.err
}

// Detail returns the attached detail and whether one was provided.
func (r Result[T]) Detail() (Detail, bool) {
	d := r.detail
	d.Warnings = slices.Clone(d.Warnings)
	return d, r.hasDetail
}

// Code returns the detail code, or the empty code when none was attached.
func (r Result[T]) Code() Code {
	return r.detail.Code
}

func (r Result[T]) mustBeValid() {
	if !r.valid {
		panic("result: use of zero Result")
	}
}

// Bubble re-wraps a failed Result as a failure of another type, keeping its
// error and detail. Bubbling a success panics.
func Bubble[U, T any](r Result[T]) Result[U] {
	if r.IsSuccess() {
		panic("result: Bubble called on success")
	}
	out := Result[U]{err: r.err, detail: r.detail, hasDetail: r.hasDetail, valid: true}
	out.detail.Warnings = slices.Clone(r.detail.Warnings)
	return out
}

// WithWarning returns a copy of r with code appended to its detail warnings.
func (r Result[T]) WithWarning(code Code) Result[T] {
	r.mustBeValid()
	out := r
	out.detail.Warnings = append(slices.Clone(r.detail.Warnings), code)
	out.hasDetail = true
	return out
}
