package model

import "errors"

// Lookup failures shared by the stores.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrProblemNotFound    = errors.New("problem not found")
	ErrContestNotFound    = errors.New("contest not found")
	ErrProfileNotFound    = errors.New("user profile not found")
	ErrServerNotFound     = errors.New("judge server not found")
)
