package model

// ACMProblemRank is one problem's cell in an ACM rank row.
type ACMProblemRank struct {
	IsAC        bool  `json:"is_ac"`
	ACTime      int64 `json:"ac_time"`
	ErrorNumber int64 `json:"error_number"`
	IsFirstAC   bool  `json:"is_first_ac"`
}

// ACMContestRank is a user's standing in an ACM contest. SubmissionInfo is keyed by display id.
type ACMContestRank struct {
	ID               int64                     `json:"id"`
	UserID           int64                     `json:"user_id"`
	ContestID        int64                     `json:"contest_id"`
	RealName         string                    `json:"real_name"`
	SubmissionNumber int64                     `json:"submission_number"`
	AcceptedNumber   int64                     `json:"accepted_number"`
	TotalTime        int64                     `json:"total_time"`
	SubmissionInfo   map[string]ACMProblemRank `json:"submission_info"`
}

// OIContestRank is a user's standing in an OI contest. SubmissionInfo maps problem id to the latest score.
type OIContestRank struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"user_id"`
	ContestID        int64            `json:"contest_id"`
	RealName         string           `json:"real_name"`
	SubmissionNumber int64            `json:"submission_number"`
	TotalScore       int64            `json:"total_score"`
	SubmissionInfo   map[string]int64 `json:"submission_info"`
}

// RankSnapshot is a contest's full standings, ordered for display.
type RankSnapshot struct {
	ContestID int64            `json:"contest_id"`
	RuleType  RuleType         `json:"rule_type"`
	ACM       []ACMContestRank `json:"acm,omitempty"`
	OI        []OIContestRank  `json:"oi,omitempty"`
}

// Len returns the number of rank rows.
func (s *RankSnapshot) Len() int {
	if s.RuleType == RuleOI {
		return len(s.OI)
	}
	return len(s.ACM)
}
