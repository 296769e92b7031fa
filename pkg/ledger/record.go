// Package ledger records one row per participant in an append-only CSV
// file, and optionally mirrors each row into SQLite for analysis.
package ledger

import (
	"strconv"
)

// Demographics holds the answers from the demographics page.
type Demographics struct {
	Age       int    `json:"age" validate:"required,gt=0"`
	Gender    string `json:"gender" validate:"required"`
	Education string `json:"education_level" validate:"required"`
	Race      string `json:"race" validate:"required"`
}

// TrialResult is what happened in one trial slot.
type TrialResult struct {
	Condition    string `json:"condition"`
	URNPositions string `json:"urn_positions"`
	Choice       string `json:"choice"`
	BallColor    string `json:"ball_color"`
}

// Record is one participant's ledger row.
type Record struct {
	Sequence  int    `json:"sequence"`
	ID        string `json:"id"`
	Completed bool   `json:"completed"`

	// Demographics is nil until the demographics page is submitted.
	Demographics *Demographics `json:"demographics,omitempty"`

	Trials []TrialResult `json:"trials"`
}

// NewRecord creates the record for the next participant given how many are
// already in the ledger. An empty id defaults to the sequence number.
func NewRecord(existing int, id string) *Record {
	seq := existing + 1
	if id == "" {
		id = strconv.Itoa(seq)
	}
	return &Record{Sequence: seq, ID: id, Trials: []TrialResult{}}
}

// Row flattens the record into ledger fields. A participant who leaves early
// yields a short row holding only what was collected.
func (r *Record) Row() []string {
	completed := "0"
	if r.Completed {
		completed = "1"
	}
	row := []string{strconv.Itoa(r.Sequence), r.ID, completed}
	if r.Demographics == nil {
		return row
	}

	d := r.Demographics
	row = append(row, strconv.Itoa(d.Age), d.Gender, d.Education, d.Race)
	for _, t := range r.Trials {
		row = append(row, t.Condition, t.URNPositions, t.Choice, t.BallColor)
	}
	return row
}

// Header returns the column names for a ledger with the given number of trial slots.
func Header(slots int) []string {
	h := []string{"sequence", "ID", "completed", "age", "gender", "education_level", "race"}
	for i := 1; i <= slots; i++ {
		p := strconv.Itoa(i) + "_"
		h = append(h, p+"condition", p+"urn_positions", p+"choice", p+"ball_color")
	}
	return h
}
