package model

// UserProfile holds a user's global counters.
type UserProfile struct {
	UserID           int64
	RealName         string
	SubmissionNumber int64
	AcceptedNumber   int64
	TotalScore       int64
}

// ProblemProgress is a user's best-known state on one problem within a scope.
type ProblemProgress struct {
	UserID    int64
	Scope     ProgressScope
	ProblemID int64
	DisplayID string
	RuleType  RuleType
	Status    Verdict
	Score     int64
}
