// Package memstore is an in-memory implementation of the dispatcher's stores, used by tests.
//
// Transactions are serialized by a single mutex. A transaction whose function returns an error
// restores every table to its state when the transaction began.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/model"
)

type problemKey struct {
	scope model.ProblemScope
	id    int64
}

type progressKey struct {
	userID    int64
	scope     model.ProgressScope
	problemID int64
}

type rankKey struct {
	contestID int64
	userID    int64
}

type problemRow struct {
	problem  model.Problem
	counters model.ProblemCounters
}

// Store holds every table in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	submissions map[string]*model.Submission
	testRuns    map[string]*model.Submission
	problems    map[problemKey]*problemRow
	contests    map[int64]*model.Contest
	profiles    map[int64]*model.UserProfile
	progress    map[progressKey]*model.ProblemProgress
	acmRanks    map[rankKey]*model.ACMContestRank
	oiRanks     map[rankKey]*model.OIContestRank
	servers     map[int64]*model.JudgeServer
	rankChanges map[int64]int
	nextID      int64

	// faults holds one pending error per operation name, see FailNext.
	faults map[string]error
}

func New() *Store {
	return &Store{
		submissions: make(map[string]*model.Submission),
		testRuns:    make(map[string]*model.Submission),
		problems:    make(map[problemKey]*problemRow),
		contests:    make(map[int64]*model.Contest),
		profiles:    make(map[int64]*model.UserProfile),
		progress:    make(map[progressKey]*model.ProblemProgress),
		acmRanks:    make(map[rankKey]*model.ACMContestRank),
		oiRanks:     make(map[rankKey]*model.OIContestRank),
		servers:     make(map[int64]*model.JudgeServer),
		rankChanges: make(map[int64]int),
		faults:      make(map[string]error),
	}
}

// Transaction runs fn with a nil transaction while holding the store-wide transaction lock.
// When fn fails the tables are put back as they were; writes made outside a transaction
// while fn ran are lost with them.
func (s *Store) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// FailNext makes the next call of the named store method return err.
// Names are the method names, for example "SaveJudgment" or "SetCountedResult".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault pops the pending error for op. The caller holds s.mu.
func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

type tables struct {
	submissions map[string]*model.Submission
	testRuns    map[string]*model.Submission
	problems    map[problemKey]*problemRow
	contests    map[int64]*model.Contest
	profiles    map[int64]*model.UserProfile
	progress    map[progressKey]*model.ProblemProgress
	acmRanks    map[rankKey]*model.ACMContestRank
	oiRanks     map[rankKey]*model.OIContestRank
	servers     map[int64]*model.JudgeServer
	rankChanges map[int64]int
	nextID      int64
}

func (s *Store) snapshot() tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := tables{
		submissions: make(map[string]*model.Submission, len(s.submissions)),
		testRuns:    make(map[string]*model.Submission, len(s.testRuns)),
		problems:    make(map[problemKey]*problemRow, len(s.problems)),
		contests:    make(map[int64]*model.Contest, len(s.contests)),
		profiles:    make(map[int64]*model.UserProfile, len(s.profiles)),
		progress:    make(map[progressKey]*model.ProblemProgress, len(s.progress)),
		acmRanks:    make(map[rankKey]*model.ACMContestRank, len(s.acmRanks)),
		oiRanks:     make(map[rankKey]*model.OIContestRank, len(s.oiRanks)),
		servers:     make(map[int64]*model.JudgeServer, len(s.servers)),
		rankChanges: make(map[int64]int, len(s.rankChanges)),
		nextID:      s.nextID,
	}
	for k, v := range s.submissions {
		t.submissions[k] = copySubmission(v)
	}
	for k, v := range s.testRuns {
		t.testRuns[k] = copySubmission(v)
	}
	for k, v := range s.problems {
		t.problems[k] = copyProblemRow(v)
	}
	for k, v := range s.contests {
		cp := *v
		t.contests[k] = &cp
	}
	for k, v := range s.profiles {
		cp := *v
		t.profiles[k] = &cp
	}
	for k, v := range s.progress {
		cp := *v
		t.progress[k] = &cp
	}
	for k, v := range s.acmRanks {
		t.acmRanks[k] = copyACM(v)
	}
	for k, v := range s.oiRanks {
		t.oiRanks[k] = copyOI(v)
	}
	for k, v := range s.servers {
		cp := *v
		t.servers[k] = &cp
	}
	for k, v := range s.rankChanges {
		t.rankChanges[k] = v
	}
	return t
}

func (s *Store) restore(t tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = t.submissions
	s.testRuns = t.testRuns
	s.problems = t.problems
	s.contests = t.contests
	s.profiles = t.profiles
	s.progress = t.progress
	s.acmRanks = t.acmRanks
	s.oiRanks = t.oiRanks
	s.servers = t.servers
	s.rankChanges = t.rankChanges
	s.nextID = t.nextID
}

// Views over the store, one per interface.

func (s *Store) Submissions() *Submissions { return &Submissions{s} }
func (s *Store) Problems() *Problems       { return &Problems{s} }
func (s *Store) Contests() *Contests       { return &Contests{s} }
func (s *Store) Profiles() *Profiles       { return &Profiles{s} }
func (s *Store) Progress() *Progress       { return &Progress{s} }
func (s *Store) Ranks() *Ranks             { return &Ranks{s} }
func (s *Store) Servers() *Servers         { return &Servers{s} }

// Seeding.

func (s *Store) PutSubmission(sub model.Submission, testRun bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copySubmission(&sub)
	if testRun {
		s.testRuns[sub.ID] = cp
		return
	}
	s.submissions[sub.ID] = cp
}

func (s *Store) PutProblem(p model.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Scope == "" {
		p.Scope = model.ProblemScopePublic
	}
	s.problems[problemKey{p.Scope, p.ID}] = &problemRow{
		problem:  p,
		counters: model.ProblemCounters{Histogram: model.VerdictHistogram{}},
	}
}

func (s *Store) PutContest(c model.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[c.ID] = &c
}

func (s *Store) PutProfile(p model.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = &p
}

// PutServer stores a server and returns its id.
func (s *Store) PutServer(srv model.JudgeServer) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	srv.ID = s.nextID
	s.servers[srv.ID] = &srv
	return srv.ID
}

// Inspection.

func (s *Store) Submission(id string, testRun bool) *model.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.submissions
	if testRun {
		src = s.testRuns
	}
	if sub, ok := src[id]; ok {
		return copySubmission(sub)
	}
	return nil
}

func (s *Store) Counters(scope model.ProblemScope, id int64) model.ProblemCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.problems[problemKey{scope, id}]
	if !ok {
		return model.ProblemCounters{}
	}
	out := row.counters
	out.Histogram = make(model.VerdictHistogram, len(row.counters.Histogram))
	for k, v := range row.counters.Histogram {
		out.Histogram[k] = v
	}
	return out
}

func (s *Store) Profile(userID int64) model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		return *p
	}
	return model.UserProfile{}
}

func (s *Store) ProgressOf(userID int64, scope model.ProgressScope, problemID int64) *model.ProblemProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[progressKey{userID, scope, problemID}]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (s *Store) ACMRank(contestID, userID int64) *model.ACMContestRank {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.acmRanks[rankKey{contestID, userID}]; ok {
		return copyACM(r)
	}
	return nil
}

func (s *Store) OIRank(contestID, userID int64) *model.OIContestRank {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.oiRanks[rankKey{contestID, userID}]; ok {
		return copyOI(r)
	}
	return nil
}

func (s *Store) Server(id int64) *model.JudgeServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if srv, ok := s.servers[id]; ok {
		cp := *srv
		return &cp
	}
	return nil
}

// RankChanges returns how many rank changes were noted for a contest.
func (s *Store) RankChanges(contestID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankChanges[contestID]
}

// NoteRankChange counts a committed rank change.
func (s *Store) NoteRankChange(ctx context.Context, contestID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankChanges[contestID]++
	return nil
}

// Submissions implements the dispatcher's submission store.
type Submissions struct{ s *Store }

func (v *Submissions) table(testRun bool) map[string]*model.Submission {
	if testRun {
		return v.s.testRuns
	}
	return v.s.submissions
}

func (v *Submissions) Get(ctx context.Context, id string, testRun bool) (*model.Submission, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sub, ok := v.table(testRun)[id]
	if !ok {
		return nil, model.ErrSubmissionNotFound
	}
	return copySubmission(sub), nil
}

func (v *Submissions) MarkJudging(ctx context.Context, tx db.Transaction, id string, testRun bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sub, ok := v.table(testRun)[id]
	if !ok {
		return model.ErrSubmissionNotFound
	}
	sub.Result = model.VerdictJudging
	return nil
}

func (v *Submissions) SaveJudgment(ctx context.Context, id string, testRun bool, j *model.Judgment) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.fault("SaveJudgment"); err != nil {
		return err
	}
	sub, ok := v.table(testRun)[id]
	if !ok {
		return model.ErrSubmissionNotFound
	}
	sub.Result = j.Result
	sub.Info = j.Info
	sub.Statistic = j.Statistic
	sub.ListResult = append([]model.DiffEntry(nil), j.ListResult...)
	return nil
}

func (v *Submissions) SetCountedResult(ctx context.Context, tx db.Transaction, id string, verdict model.Verdict) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.fault("SetCountedResult"); err != nil {
		return err
	}
	sub, ok := v.s.submissions[id]
	if !ok {
		return model.ErrSubmissionNotFound
	}
	counted := verdict
	sub.CountedResult = &counted
	return nil
}

func (v *Submissions) ResetForRejudge(ctx context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sub, ok := v.s.submissions[id]
	if !ok {
		return model.ErrSubmissionNotFound
	}
	sub.Result = model.VerdictPending
	sub.Info = nil
	sub.Statistic = model.StatisticInfo{}
	sub.ListResult = nil
	return nil
}

// Problems implements both the dispatcher's problem reader and the aggregator's counter store.
type Problems struct{ s *Store }

func (v *Problems) row(scope model.ProblemScope, id int64) (*problemRow, error) {
	row, ok := v.s.problems[problemKey{scope, id}]
	if !ok {
		return nil, model.ErrProblemNotFound
	}
	return row, nil
}

func (v *Problems) Get(ctx context.Context, scope model.ProblemScope, id int64) (*model.Problem, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	row, err := v.row(scope, id)
	if err != nil {
		return nil, err
	}
	p := row.problem
	return &p, nil
}

func (v *Problems) SetSPJCompileOK(ctx context.Context, scope model.ProblemScope, id int64, ok bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	row, err := v.row(scope, id)
	if err != nil {
		return err
	}
	row.problem.SPJCompileOK = ok
	return nil
}

func (v *Problems) LockProblem(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	_, err := v.row(scope, id)
	return err
}

func (v *Problems) AddSubmission(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64, accepted bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	row, err := v.row(scope, id)
	if err != nil {
		return err
	}
	row.counters.SubmissionNumber++
	if accepted {
		row.counters.AcceptedNumber++
	}
	return nil
}

func (v *Problems) AddAccepted(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	row, err := v.row(scope, id)
	if err != nil {
		return err
	}
	row.counters.AcceptedNumber++
	return nil
}

func (v *Problems) IncrVerdict(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64, verdict model.Verdict) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.fault("IncrVerdict"); err != nil {
		return err
	}
	row, err := v.row(scope, id)
	if err != nil {
		return err
	}
	row.counters.Histogram[verdict]++
	return nil
}

func (v *Problems) DecrVerdict(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64, verdict model.Verdict) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	row, err := v.row(scope, id)
	if err != nil {
		return err
	}
	if row.counters.Histogram[verdict] > 0 {
		row.counters.Histogram[verdict]--
	}
	return nil
}

func (v *Problems) AcceptedNumber(ctx context.Context, tx db.Transaction, scope model.ProblemScope, id int64) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	row, err := v.row(scope, id)
	if err != nil {
		return 0, err
	}
	return row.counters.AcceptedNumber, nil
}

// Contests implements the contest reader.
type Contests struct{ s *Store }

func (v *Contests) Get(ctx context.Context, id int64) (*model.Contest, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.contests[id]
	if !ok {
		return nil, model.ErrContestNotFound
	}
	cp := *c
	return &cp, nil
}

// Profiles implements the aggregator's profile store.
type Profiles struct{ s *Store }

func (v *Profiles) profile(userID int64) (*model.UserProfile, error) {
	p, ok := v.s.profiles[userID]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return p, nil
}

func (v *Profiles) GetForUpdate(ctx context.Context, tx db.Transaction, userID int64) (*model.UserProfile, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, err := v.profile(userID)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (v *Profiles) IncrSubmission(ctx context.Context, tx db.Transaction, userID int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, err := v.profile(userID)
	if err != nil {
		return err
	}
	p.SubmissionNumber++
	return nil
}

func (v *Profiles) IncrAccepted(ctx context.Context, tx db.Transaction, userID int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, err := v.profile(userID)
	if err != nil {
		return err
	}
	p.AcceptedNumber++
	return nil
}

func (v *Profiles) AdjustScore(ctx context.Context, tx db.Transaction, userID int64, last, current int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, err := v.profile(userID)
	if err != nil {
		return err
	}
	p.TotalScore = p.TotalScore - last + current
	return nil
}

// Progress implements the aggregator's progress store.
type Progress struct{ s *Store }

func (v *Progress) GetForUpdate(ctx context.Context, tx db.Transaction, userID int64, scope model.ProgressScope, problemID int64) (*model.ProblemProgress, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.progress[progressKey{userID, scope, problemID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (v *Progress) Insert(ctx context.Context, tx db.Transaction, p *model.ProblemProgress) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cp := *p
	v.s.progress[progressKey{p.UserID, p.Scope, p.ProblemID}] = &cp
	return nil
}

func (v *Progress) UpdateStatus(ctx context.Context, tx db.Transaction, userID int64, scope model.ProgressScope, problemID int64, status model.Verdict, score int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.progress[progressKey{userID, scope, problemID}]
	if !ok {
		return nil
	}
	p.Status = status
	p.Score = score
	return nil
}

// Ranks implements the aggregator's rank store.
type Ranks struct{ s *Store }

func (v *Ranks) GetOrCreateACMForUpdate(ctx context.Context, tx db.Transaction, contestID, userID int64) (*model.ACMContestRank, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	key := rankKey{contestID, userID}
	r, ok := v.s.acmRanks[key]
	if !ok {
		r = &model.ACMContestRank{ContestID: contestID, UserID: userID, SubmissionInfo: map[string]model.ACMProblemRank{}}
		v.s.acmRanks[key] = r
	}
	return copyACM(r), nil
}

func (v *Ranks) SaveACM(ctx context.Context, tx db.Transaction, rank *model.ACMContestRank) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.fault("SaveACM"); err != nil {
		return err
	}
	v.s.acmRanks[rankKey{rank.ContestID, rank.UserID}] = copyACM(rank)
	return nil
}

func (v *Ranks) GetOrCreateOIForUpdate(ctx context.Context, tx db.Transaction, contestID, userID int64) (*model.OIContestRank, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	key := rankKey{contestID, userID}
	r, ok := v.s.oiRanks[key]
	if !ok {
		r = &model.OIContestRank{ContestID: contestID, UserID: userID, SubmissionInfo: map[string]int64{}}
		v.s.oiRanks[key] = r
	}
	return copyOI(r), nil
}

func (v *Ranks) SaveOI(ctx context.Context, tx db.Transaction, rank *model.OIContestRank) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.oiRanks[rankKey{rank.ContestID, rank.UserID}] = copyOI(rank)
	return nil
}

// ListACM returns a contest's ACM rank rows.
func (v *Ranks) ListACM(ctx context.Context, contestID int64) ([]model.ACMContestRank, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.ACMContestRank
	for k, r := range v.s.acmRanks {
		if k.contestID == contestID && r.SubmissionNumber > 0 {
			out = append(out, *copyACM(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcceptedNumber != out[j].AcceptedNumber {
			return out[i].AcceptedNumber > out[j].AcceptedNumber
		}
		return out[i].TotalTime < out[j].TotalTime
	})
	return out, nil
}

// ListOI returns a contest's OI rank rows.
func (v *Ranks) ListOI(ctx context.Context, contestID int64) ([]model.OIContestRank, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.OIContestRank
	for k, r := range v.s.oiRanks {
		if k.contestID == contestID && r.SubmissionNumber > 0 {
			out = append(out, *copyOI(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out, nil
}

// Servers implements the pool's server store.
type Servers struct{ s *Store }

func (v *Servers) sorted(enabledOnly bool) []*model.JudgeServer {
	out := make([]*model.JudgeServer, 0, len(v.s.servers))
	for _, srv := range v.s.servers {
		if enabledOnly && srv.IsDisabled {
			continue
		}
		cp := *srv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskNumber != out[j].TaskNumber {
			return out[i].TaskNumber < out[j].TaskNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *Servers) ListEnabledForUpdate(ctx context.Context, tx db.Transaction) ([]*model.JudgeServer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.sorted(true), nil
}

func (v *Servers) List(ctx context.Context) ([]*model.JudgeServer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.sorted(false), nil
}

func (v *Servers) IncrTask(ctx context.Context, tx db.Transaction, id int64) error {
	return v.update(id, func(srv *model.JudgeServer) { srv.TaskNumber++ })
}

func (v *Servers) DecrTask(ctx context.Context, id int64) error {
	return v.update(id, func(srv *model.JudgeServer) {
		if srv.TaskNumber > 0 {
			srv.TaskNumber--
		}
	})
}

func (v *Servers) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	return v.update(id, func(srv *model.JudgeServer) { srv.IsDisabled = disabled })
}

func (v *Servers) ResetTasks(ctx context.Context, id int64) error {
	return v.update(id, func(srv *model.JudgeServer) { srv.TaskNumber = 0 })
}

func (v *Servers) DeleteByHostname(ctx context.Context, hostname string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for id, srv := range v.s.servers {
		if srv.Hostname == hostname {
			delete(v.s.servers, id)
			return nil
		}
	}
	return model.ErrServerNotFound
}

func (v *Servers) UpsertHeartbeat(ctx context.Context, r model.HeartbeatReport, now time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, srv := range v.s.servers {
		if srv.Hostname == r.Hostname {
			srv.JudgerVersion = r.JudgerVersion
			srv.CPUCore = r.CPUCore
			srv.MemoryUsage = r.Memory
			srv.CPUUsage = r.CPU
			srv.ServiceURL = r.ServiceURL
			srv.IP = r.IP
			srv.LastHeartbeat = now
			return nil
		}
	}
	v.s.nextID++
	v.s.servers[v.s.nextID] = &model.JudgeServer{
		ID:            v.s.nextID,
		Hostname:      r.Hostname,
		IP:            r.IP,
		JudgerVersion: r.JudgerVersion,
		CPUCore:       r.CPUCore,
		MemoryUsage:   r.Memory,
		CPUUsage:      r.CPU,
		ServiceURL:    r.ServiceURL,
		LastHeartbeat: now,
		CreateTime:    now,
	}
	return nil
}

func (v *Servers) update(id int64, fn func(*model.JudgeServer)) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	srv, ok := v.s.servers[id]
	if !ok {
		return model.ErrServerNotFound
	}
	fn(srv)
	return nil
}

func copySubmission(sub *model.Submission) *model.Submission {
	cp := *sub
	cp.ListResult = append([]model.DiffEntry(nil), sub.ListResult...)
	if sub.CountedResult != nil {
		v := *sub.CountedResult
		cp.CountedResult = &v
	}
	return &cp
}

func copyProblemRow(r *problemRow) *problemRow {
	cp := *r
	cp.counters.Histogram = make(model.VerdictHistogram, len(r.counters.Histogram))
	for k, v := range r.counters.Histogram {
		cp.counters.Histogram[k] = v
	}
	return &cp
}

func copyACM(r *model.ACMContestRank) *model.ACMContestRank {
	cp := *r
	cp.SubmissionInfo = make(map[string]model.ACMProblemRank, len(r.SubmissionInfo))
	for k, v := range r.SubmissionInfo {
		cp.SubmissionInfo[k] = v
	}
	return &cp
}

func copyOI(r *model.OIContestRank) *model.OIContestRank {
	cp := *r
	cp.SubmissionInfo = make(map[string]int64, len(r.SubmissionInfo))
	for k, v := range r.SubmissionInfo {
		cp.SubmissionInfo[k] = v
	}
	return &cp
}
