package core

import "fmt"

// MalformedRowError reports a single CSV row that could not be turned
// into a canonical transaction. The row is skipped and the import
// continues; the error is surfaced in the ImportResult so the user can
// fix the source file.
type MalformedRowError struct {
	File   string
	Line   int // 1-based, counting the header
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.File, e.Line, e.Reason)
}

// UnrecognizedSchemaError means no header-matching strategy accepted
// the file. The whole import is aborted and nothing is ingested.
type UnrecognizedSchemaError struct {
	File    string
	Headers []string
}

func (e *UnrecognizedSchemaError) Error() string {
	return fmt.Sprintf("%s: unrecognized CSV schema, headers %v", e.File, e.Headers)
}

// ImportResult is what the user sees after an import: how many rows
// made it in, how many were already known, and what was skipped and
// why. A duplicate is not an error; re-uploading a statement is an
// expected workflow.
type ImportResult struct {
	File      string
	Accepted  int
	Duplicate int
	Skipped   []*MalformedRowError
}

func (r ImportResult) String() string {
	return fmt.Sprintf("%s: %d accepted, %d duplicate, %d skipped",
		r.File, r.Accepted, r.Duplicate, len(r.Skipped))
}

// Merge folds another file's result into an overall tally.
func (r *ImportResult) Merge(o ImportResult) {
	r.Accepted += o.Accepted
	r.Duplicate += o.Duplicate
	r.Skipped = append(r.Skipped, o.Skipped...)
}
