package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"judgehub/internal/common/db"
	"judgehub/internal/dispatch/memstore"
	"judgehub/internal/dispatch/model"
)

func seeded() (*memstore.Store, int64) {
	store := memstore.New()
	store.PutProblem(model.Problem{ID: 1, DisplayID: "A", RuleType: model.RuleACM})
	store.PutProfile(model.UserProfile{UserID: 7})
	store.PutSubmission(model.Submission{ID: "s-1", ProblemID: 1, UserID: 7, Result: model.VerdictWrongAnswer}, false)
	id := store.PutServer(model.JudgeServer{Hostname: "judge-1", CPUCore: 1, LastHeartbeat: time.Now()})
	return store, id
}

func TestTransactionRollsBackOnFailure(t *testing.T) {
	store, serverID := seeded()
	ctx := context.Background()
	storeErr := errors.New("lock wait timeout")
	store.FailNext("IncrVerdict", storeErr)

	err := store.Transaction(ctx, func(tx db.Transaction) error {
		if err := store.Servers().IncrTask(ctx, tx, serverID); err != nil {
			return err
		}
		if err := store.Problems().AddSubmission(ctx, tx, model.ProblemScopePublic, 1, false); err != nil {
			return err
		}
		if err := store.Profiles().IncrSubmission(ctx, tx, 7); err != nil {
			return err
		}
		if err := store.Submissions().SetCountedResult(ctx, tx, "s-1", model.VerdictWrongAnswer); err != nil {
			return err
		}
		return store.Problems().IncrVerdict(ctx, tx, model.ProblemScopePublic, 1, model.VerdictWrongAnswer)
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if got := store.Server(serverID).TaskNumber; got != 0 {
		t.Fatalf("expected task number rolled back, got %d", got)
	}
	if counters := store.Counters(model.ProblemScopePublic, 1); counters.SubmissionNumber != 0 || len(counters.Histogram) != 0 {
		t.Fatalf("expected counters rolled back, got %+v", counters)
	}
	if p := store.Profile(7); p.SubmissionNumber != 0 {
		t.Fatalf("expected profile rolled back, got %+v", p)
	}
	if store.Submission("s-1", false).CountedResult != nil {
		t.Fatalf("expected counted result rolled back")
	}
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	store, serverID := seeded()
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx db.Transaction) error {
		if err := store.Servers().IncrTask(ctx, tx, serverID); err != nil {
			return err
		}
		return store.Submissions().SetCountedResult(ctx, tx, "s-1", model.VerdictWrongAnswer)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if got := store.Server(serverID).TaskNumber; got != 1 {
		t.Fatalf("expected task number 1, got %d", got)
	}
	if got := store.Submission("s-1", false).CountedResult; got == nil || *got != model.VerdictWrongAnswer {
		t.Fatalf("expected counted result kept, got %v", got)
	}
}

func TestFailNextFiresOnce(t *testing.T) {
	store, _ := seeded()
	ctx := context.Background()
	store.FailNext("SaveJudgment", errors.New("gone away"))

	j := &model.Judgment{Result: model.VerdictAccepted}
	if err := store.Submissions().SaveJudgment(ctx, "s-1", false, j); err == nil {
		t.Fatalf("expected first save to fail")
	}
	if err := store.Submissions().SaveJudgment(ctx, "s-1", false, j); err != nil {
		t.Fatalf("expected second save to succeed, got %v", err)
	}
	if got := store.Submission("s-1", false).Result; got != model.VerdictAccepted {
		t.Fatalf("expected accepted, got %s", got)
	}
}
