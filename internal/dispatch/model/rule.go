package model

// RuleType selects how per-case results fold into a verdict.
type RuleType string

const (
	// RuleACM is correctness-only: the first failing case decides the verdict.
	RuleACM RuleType = "ACM"
	// RuleOI scores each case and allows partial credit.
	RuleOI RuleType = "OI"
)

func (r RuleType) Valid() bool {
	return r == RuleACM || r == RuleOI
}

// ProgressScope separates public practice progress from contest progress.
type ProgressScope string

const (
	ScopePublic  ProgressScope = "public"
	ScopeContest ProgressScope = "contest"
)

// ProblemScope tells the public problem table from the contest problem table.
type ProblemScope string

const (
	ProblemScopePublic  ProblemScope = "problem"
	ProblemScopeContest ProblemScope = "contest_problem"
)
