package model

import (
	"encoding/json"
	"time"
)

// Submission is a user's solution attempt. Test runs share the shape and live in a separate table.
type Submission struct {
	ID         string          `json:"id"`
	ProblemID  int64           `json:"problem_id"`
	ContestID  *int64          `json:"contest_id,omitempty"`
	UserID     int64           `json:"user_id"`
	Language   string          `json:"language"`
	Code       string          `json:"code"`
	Result     Verdict         `json:"result"`
	Info       json.RawMessage `json:"info,omitempty"`
	Statistic  StatisticInfo   `json:"statistic_info"`
	ListResult []DiffEntry     `json:"list_result,omitempty"`

	// CountedResult is the verdict last folded into statistics; nil until the first counted judgment.
	CountedResult *Verdict  `json:"counted_result,omitempty"`
	CreateTime    time.Time `json:"create_time"`
}

// InContest reports whether the submission was made to a contest problem.
func (s *Submission) InContest() bool {
	return s.ContestID != nil && *s.ContestID > 0
}

// StatisticInfo summarizes a judgment.
type StatisticInfo struct {
	TimeCost         int64  `json:"time_cost,omitempty"`
	MemoryCost       int64  `json:"memory_cost,omitempty"`
	Score            int64  `json:"score"`
	ErrInfo          string `json:"err_info,omitempty"`
	TotalCaseNumber  int    `json:"total_case_number,omitempty"`
	FailedCaseNumber int    `json:"failed_case_number,omitempty"`
}

// DiffEntry pairs a failing case's actual output with the expected one.
type DiffEntry struct {
	Error string `json:"error"`
	Right string `json:"right"`
}

// Judgment is everything the dispatcher persists once a judge server answers.
type Judgment struct {
	Result     Verdict
	Info       json.RawMessage
	Statistic  StatisticInfo
	ListResult []DiffEntry
}
