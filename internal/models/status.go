// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package models

// StatusCode identifies a stage in the album documentation lifecycle.
// The set is closed: codes outside it must never overwrite known state.
type StatusCode string

// Album lifecycle status codes.
const (
	StatusWaiting    StatusCode = "waiting"
	StatusUpload     StatusCode = "upload"
	StatusSent       StatusCode = "sent"
	StatusAccepted   StatusCode = "accepted"
	StatusRemarks    StatusCode = "remarks"
	StatusProduction StatusCode = "production"
)

// Status carries the display attributes for a status code.
type Status struct {
	Code  StatusCode `json:"code"`
	Label string     `json:"label"`
	// Color is the row-highlight color class used by table views.
	Color string `json:"color"`
}

// statusTable is the closed, exhaustive code-to-display mapping.
var statusTable = map[StatusCode]Status{
	StatusWaiting:    {Code: StatusWaiting, Label: "Waiting", Color: "secondary"},
	StatusUpload:     {Code: StatusUpload, Label: "Upload", Color: "info"},
	StatusSent:       {Code: StatusSent, Label: "Sent", Color: "primary"},
	StatusAccepted:   {Code: StatusAccepted, Label: "Accepted", Color: "success"},
	StatusRemarks:    {Code: StatusRemarks, Label: "Remarks", Color: "danger"},
	StatusProduction: {Code: StatusProduction, Label: "InProduction", Color: "warning"},
}

// ResolveStatus looks up the display attributes for a status code.
// The second return value is false for codes outside the closed set.
func ResolveStatus(code StatusCode) (Status, bool) {
	s, ok := statusTable[code]
	return s, ok
}

// ValidStatusCode reports whether code belongs to the closed set.
func ValidStatusCode(code StatusCode) bool {
	_, ok := statusTable[code]
	return ok
}

// StatusLabel returns the canonical display label for a code, or the
// empty string for unknown codes. Callers that must not erase known
// state should use ResolveStatus and check the bool instead.
func StatusLabel(code StatusCode) string {
	return statusTable[code].Label
}

// AllStatuses returns the status table in lifecycle order.
// Used by settings screens and filter dropdowns.
func AllStatuses() []Status {
	return []Status{
		statusTable[StatusWaiting],
		statusTable[StatusUpload],
		statusTable[StatusSent],
		statusTable[StatusAccepted],
		statusTable[StatusRemarks],
		statusTable[StatusProduction],
	}
}
