package model

import "time"

// ContestStatus is derived from the clock.
type ContestStatus string

const (
	ContestNotStarted ContestStatus = "NOT_STARTED"
	ContestUnderway   ContestStatus = "UNDERWAY"
	ContestEnded      ContestStatus = "ENDED"
)

// Contest is the timing and rule information the dispatcher needs.
type Contest struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	RuleType     RuleType  `json:"rule_type"`
	RealTimeRank bool      `json:"real_time_rank"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// Status returns the contest phase at now.
func (c *Contest) Status(now time.Time) ContestStatus {
	switch {
	case now.Before(c.StartTime):
		return ContestNotStarted
	case now.After(c.EndTime):
		return ContestEnded
	default:
		return ContestUnderway
	}
}
