package model

// Problem carries what the dispatcher needs to judge a public or contest problem.
type Problem struct {
	ID          int64        `json:"id"`
	DisplayID   string       `json:"_id"`
	ContestID   *int64       `json:"contest_id,omitempty"`
	Scope       ProblemScope `json:"scope"`
	TimeLimit   int64        `json:"time_limit"`
	MemoryLimit int64        `json:"memory_limit"`
	TestCaseID  string       `json:"test_case_id"`
	TestCases   []TestCase   `json:"test_cases"`
	Samples     []Sample     `json:"samples"`
	RuleType    RuleType     `json:"rule_type"`

	SPJ          bool   `json:"spj"`
	SPJLanguage  string `json:"spj_language,omitempty"`
	SPJCode      string `json:"spj_code,omitempty"`
	SPJVersion   string `json:"spj_version,omitempty"`
	SPJCompileOK bool   `json:"spj_compile_ok"`
}

// TestCase describes one packaged case; Output is the expected output when the packager stored it.
type TestCase struct {
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`
	Output     string `json:"output,omitempty"`
	Score      int64  `json:"score,omitempty"`
}

// Sample is a literal input/output pair used by test runs.
type Sample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// ProblemCounters is a problem's aggregate statistics.
type ProblemCounters struct {
	SubmissionNumber int64
	AcceptedNumber   int64
	Histogram        VerdictHistogram
}
