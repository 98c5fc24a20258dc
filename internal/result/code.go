// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package result

import "fmt"

// Code is a result code from the closed catalogue below. Codes are the keys
// of every report breakdown.
type Code string

// Error codes.
const (
	EvaluationAborted         Code = "ECODE1"
	MissingPriorityLevel      Code = "ECODE2"
	NetworkError              Code = "ECODE3"
	UnrecognizedPriorityLevel Code = "ECODE5"
	UnknownTransformError     Code = "ECODE6"
)

// Warning codes.
const (
	NoVisitSubmissions Code = "WCODE1"
)

// Info codes.
const (
	NoSymbologyChangeNeeded Code = "ICODE1"
)

// Success codes.
const (
	MarkerColorUpdated   Code = "SCODE1"
	UnknownSuccessReason Code = "SCODE2"
)

// Category groups result codes.
type Category string

const (
	CategoryError   Category = "error"
	CategoryWarning Category = "warning"
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
)

type codeInfo struct {
	category    Category
	description string
}

var catalogue = map[Code]codeInfo{
	EvaluationAborted:         {CategoryError, "Evaluation was cancelled"},
	MissingPriorityLevel:      {CategoryError, "Facility does not have a priority level"},
	NetworkError:              {CategoryError, "Request failed due to an unrecoverable network error"},
	UnrecognizedPriorityLevel: {CategoryError, "Facility has an invalid priority level"},
	UnknownTransformError:     {CategoryError, "Reason for result status is unknown"},
	NoVisitSubmissions:        {CategoryWarning, "Facility do not have visit submissions"},
	NoSymbologyChangeNeeded:   {CategoryInfo, "Facility already has the correct symbology marker color"},
	MarkerColorUpdated:        {CategorySuccess, "The marker color was successfully updated"},
	UnknownSuccessReason:      {CategorySuccess, "Reason for result status is unknown"},
}

// ordered is the rendering order used by Codes.
var ordered = []Code{
	EvaluationAborted,
	MissingPriorityLevel,
	NetworkError,
	UnrecognizedPriorityLevel,
	UnknownTransformError,
	NoVisitSubmissions,
	NoSymbologyChangeNeeded,
	MarkerColorUpdated,
	UnknownSuccessReason,
}

// Codes returns every known code in catalogue order.
func Codes() []Code {
	out := make([]Code, len(ordered))
	copy(out, ordered)
	return out
}

// Valid reports whether c belongs to the catalogue.
func (c Code) Valid() bool {
	_, ok := catalogue[c]
	return ok
}

// Category returns the category of c, or the empty category for unknown codes.
func (c Code) Category() Category {
	return catalogue[c].category
}

// Description returns the human-readable text for c. Unknown codes render as
// the code itself.
func (c Code) Description() string {
	if info, ok := catalogue[c]; ok {
		return info.description
	}
	return string(c)
}

func (c Code) String() string {
	return string(c)
}

// ParseCode converts s into a catalogue code.
func ParseCode(s string) (Code, error) {
	c := Code(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown result code %q", s)
	}
	return c, nil
}
