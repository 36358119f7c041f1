package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CaseNumber is a judge server's 1-based test case number. Servers send it either as a JSON
// number or as a numeric string.
type CaseNumber int

func (n *CaseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid test case number %q", s)
		}
		*n = CaseNumber(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid test case number %s", data)
	}
	*n = CaseNumber(v)
	return nil
}

// CaseResult is one test case's outcome as reported by a judge server.
type CaseResult struct {
	TestCase CaseNumber `json:"test_case"`
	Result   Verdict    `json:"result"`
	CPUTime  int64      `json:"cpu_time"`
	RealTime int64      `json:"real_time"`
	Memory   int64      `json:"memory"`
	Signal   int        `json:"signal"`
	ExitCode int        `json:"exit_code"`
	Error    int        `json:"error"`
	Output   *string    `json:"output"`
	Score    *int64     `json:"score,omitempty"`
}

// Passed reports whether the case was accepted.
func (c CaseResult) Passed() bool {
	return c.Result == VerdictAccepted
}
