package build

import "time"

// FileStatus is the terminal state of one notebook within a run.
type FileStatus string

const (
	StatusConverted FileStatus = "converted"
	StatusSkipped   FileStatus = "skipped"
	StatusFailed    FileStatus = "failed"
)

// FileResult is the outcome for one notebook.
type FileResult struct {
	Notebook string
	Status   FileStatus
	Duration time.Duration
	Err      error
}

// Report summarizes a full pipeline run.
type Report struct {
	BuildID  string
	Started  time.Time
	Finished time.Time
	Files    []FileResult
}

// Counts returns (converted, skipped, failed).
func (r *Report) Counts() (converted, skipped, failed int) {
	for _, f := range r.Files {
		switch f.Status {
		case StatusConverted:
			converted++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Failed reports whether any notebook failed.
func (r *Report) Failed() bool {
	for _, f := range r.Files {
		if f.Status == StatusFailed {
			return true
		}
	}
	return false
}

// FirstError returns the first failure in input order, or nil.
func (r *Report) FirstError() error {
	for _, f := range r.Files {
		if f.Err != nil {
			return f.Err
		}
	}
	return nil
}

// Outcome is "success" or "failure", for the state store and events.
func (r *Report) Outcome() string {
	if r.Failed() {
		return "failure"
	}
	return "success"
}
