package model

import "errors"

// Job asks the dispatcher to judge one submission.
type Job struct {
	SubmissionID string `json:"submission_id"`
	ProblemID    int64  `json:"problem_id"`
	TestRun      bool   `json:"test_run,omitempty"`
}

// Validate checks the job has the identifiers dispatch needs.
func (j Job) Validate() error {
	if j.SubmissionID == "" {
		return errors.New("submission_id is required")
	}
	if j.ProblemID <= 0 {
		return errors.New("problem_id is required")
	}
	return nil
}
