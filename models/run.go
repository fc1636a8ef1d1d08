package models

import "time"

// RunSummary reports one search-extract-transform-load run.
type RunSummary struct {
	RunID       string    `json:"runId"`
	Keyword     string    `json:"keyword"`
	Found       int       `json:"found"`
	Extracted   int       `json:"extracted"`
	Transformed int       `json:"transformed"`
	Loaded      int       `json:"loaded"`
	Failed      int       `json:"failed"`
	NewProducts int       `json:"newProducts"`
	NewOpinions int       `json:"newOpinions"`
	Errors      []string  `json:"errors,omitempty"`
	Stale       bool      `json:"stale"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
}
