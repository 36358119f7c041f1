// Package classifier folds a judge server's per-case results into a single verdict.
package classifier

import (
	"sort"

	"judgehub/internal/dispatch/model"
)

// DefaultMaxDiffEntries bounds the diff list stored on a submission.
const DefaultMaxDiffEntries = 20

// Expected is what the problem says a case should produce. Index i describes case number i+1.
type Expected struct {
	Output string
	Score  int64
}

// Input is everything Classify needs.
type Input struct {
	Cases    []model.CaseResult
	Rule     model.RuleType
	Expected []Expected

	// MaxDiffEntries caps the diff list; zero or less means unlimited.
	MaxDiffEntries int
}

// Result is the classified judgment.
type Result struct {
	Verdict   model.Verdict
	Statistic model.StatisticInfo
	Diff      []model.DiffEntry
	// Cases are the input cases in test case order.
	Cases []model.CaseResult
}

// Classify computes the verdict, statistics and diff list for a set of case results.
//
// Every case passing is ACCEPTED. Under ACM the first failing case decides the verdict. Under OI
// a total failure keeps the first failure's code with score 0, and a partial failure is
// PARTIALLY_ACCEPTED scored with the passing cases.
func Classify(in Input) Result {
	cases := make([]model.CaseResult, len(in.Cases))
	copy(cases, in.Cases)
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].TestCase < cases[j].TestCase })

	res := Result{Cases: cases}
	var failed []model.CaseResult
	var passedScore, totalScore int64
	for _, c := range cases {
		if c.CPUTime > res.Statistic.TimeCost {
			res.Statistic.TimeCost = c.CPUTime
		}
		if c.Memory > res.Statistic.MemoryCost {
			res.Statistic.MemoryCost = c.Memory
		}
		score := caseScore(c, in.Expected)
		totalScore += score
		if c.Passed() {
			passedScore += score
			continue
		}
		failed = append(failed, c)
	}
	res.Statistic.TotalCaseNumber = len(cases)
	res.Statistic.FailedCaseNumber = len(failed)

	switch {
	case len(failed) == 0:
		res.Verdict = model.VerdictAccepted
		if in.Rule == model.RuleOI {
			res.Statistic.Score = totalScore
		}
	case in.Rule == model.RuleOI && len(failed) < len(cases):
		res.Verdict = model.VerdictPartiallyAccepted
		res.Statistic.Score = passedScore
	default:
		res.Verdict = failed[0].Result
	}

	res.Diff = buildDiff(failed, in.Expected, in.MaxDiffEntries)
	return res
}

// ExpectedCases lists what each case of p should produce. Test runs are judged against the samples.
func ExpectedCases(p *model.Problem, testRun bool) []Expected {
	if testRun {
		expected := make([]Expected, 0, len(p.Samples))
		for _, s := range p.Samples {
			expected = append(expected, Expected{Output: s.Output})
		}
		return expected
	}
	expected := make([]Expected, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		expected = append(expected, Expected{Output: tc.Output, Score: tc.Score})
	}
	return expected
}

func caseScore(c model.CaseResult, expected []Expected) int64 {
	if c.Score != nil {
		return *c.Score
	}
	if e, ok := lookup(expected, c.TestCase); ok {
		return e.Score
	}
	return 0
}

func lookup(expected []Expected, n model.CaseNumber) (Expected, bool) {
	idx := int(n) - 1
	if idx < 0 || idx >= len(expected) {
		return Expected{}, false
	}
	return expected[idx], true
}

func buildDiff(failed []model.CaseResult, expected []Expected, limit int) []model.DiffEntry {
	if len(failed) == 0 {
		return nil
	}
	n := len(failed)
	if limit > 0 && n > limit {
		n = limit
	}
	diff := make([]model.DiffEntry, 0, n)
	for _, c := range failed[:n] {
		entry := model.DiffEntry{}
		if c.Output != nil {
			entry.Error = *c.Output
		}
		if e, ok := lookup(expected, c.TestCase); ok {
			entry.Right = e.Output
		}
		diff = append(diff, entry)
	}
	return diff
}
