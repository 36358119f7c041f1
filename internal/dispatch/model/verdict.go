package model

import "strconv"

// Verdict is a submission or test-case result code. Negative and small positive values match
// the judge server's per-case codes.
type Verdict int

const (
	VerdictCompileError          Verdict = -2
	VerdictWrongAnswer           Verdict = -1
	VerdictAccepted              Verdict = 0
	VerdictCPUTimeLimitExceeded  Verdict = 1
	VerdictRealTimeLimitExceeded Verdict = 2
	VerdictMemoryLimitExceeded   Verdict = 3
	VerdictRuntimeError          Verdict = 4
	VerdictSystemError           Verdict = 5
	VerdictPending               Verdict = 6
	VerdictJudging               Verdict = 7
	VerdictPartiallyAccepted     Verdict = 8
)

var verdictNames = map[Verdict]string{
	VerdictCompileError:          "COMPILE_ERROR",
	VerdictWrongAnswer:           "WRONG_ANSWER",
	VerdictAccepted:              "ACCEPTED",
	VerdictCPUTimeLimitExceeded:  "CPU_TIME_LIMIT_EXCEEDED",
	VerdictRealTimeLimitExceeded: "REAL_TIME_LIMIT_EXCEEDED",
	VerdictMemoryLimitExceeded:   "MEMORY_LIMIT_EXCEEDED",
	VerdictRuntimeError:          "RUNTIME_ERROR",
	VerdictSystemError:           "SYSTEM_ERROR",
	VerdictPending:               "PENDING",
	VerdictJudging:               "JUDGING",
	VerdictPartiallyAccepted:     "PARTIALLY_ACCEPTED",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "VERDICT(" + strconv.Itoa(int(v)) + ")"
}

// Valid reports whether v is a known code.
func (v Verdict) Valid() bool {
	_, ok := verdictNames[v]
	return ok
}

// Terminal reports whether v is a final judgment.
func (v Verdict) Terminal() bool {
	return v.Valid() && v != VerdictPending && v != VerdictJudging
}

// Counted reports whether v is folded into statistics when it is a final judgment.
// System errors are not a judgment of correctness and never are.
func (v Verdict) Counted() bool {
	return v.Terminal() && v != VerdictSystemError
}

// VerdictHistogram counts judgments per verdict.
type VerdictHistogram map[Verdict]int64
