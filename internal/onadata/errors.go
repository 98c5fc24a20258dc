// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package onadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tomtom215/symbology/internal/result"
)

// maxErrorBodySize caps how much of an error response body is kept.
const maxErrorBodySize = 64 * 1024

// maxLoggedErrorLen caps error text sent to the log callback.
const maxLoggedErrorLen = 1024

// StatusError is returned when the final attempt of a call ends with a
// non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is one the retry policy retries.
func (e *StatusError) Retryable() bool {
	return retryableStatus(e.StatusCode)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return fmt.Sprintf("(failed to read body: %v)", err)
	}
	return string(body)
}

// IsAbort reports whether err comes from a cancelled or expired context.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// codeFor maps a call error onto a result code.
func codeFor(err error) result.Code {
	if IsAbort(err) {
		return result.EvaluationAborted
	}
	return result.NetworkError
}
