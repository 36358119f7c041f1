package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"judgehub/internal/dispatch/auth"
	"judgehub/internal/dispatch/controller"
	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/service"
	pkgerrors "judgehub/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtSecret  = "secret"
	jwtIssuer  = "judgehub"
	judgeToken = "judge-token"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeService struct {
	jobs       []model.Job
	heartbeats []model.HeartbeatReport
	updates    []service.ServerUpdate
	removed    []string
	rejudged   []string
	compiled   []string
	statusErr  error
	rankCalls  []string
}

func (f *fakeService) Submit(ctx context.Context, job model.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeService) Heartbeat(ctx context.Context, report model.HeartbeatReport) error {
	f.heartbeats = append(f.heartbeats, report)
	return nil
}

func (f *fakeService) Status(ctx context.Context, submissionID string, testRun bool) (*service.SubmissionStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	v := model.VerdictAccepted
	if testRun {
		v = model.VerdictJudging
	}
	return &service.SubmissionStatus{SubmissionID: submissionID, Result: v, ResultName: v.String()}, nil
}

func (f *fakeService) ListServers(ctx context.Context) (*service.ServerListing, error) {
	return &service.ServerListing{Token: judgeToken, PendingLength: 2}, nil
}

func (f *fakeService) UpdateServer(ctx context.Context, update service.ServerUpdate) error {
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeService) RemoveServer(ctx context.Context, hostname string) error {
	f.removed = append(f.removed, hostname)
	return nil
}

func (f *fakeService) Rejudge(ctx context.Context, submissionID string) error {
	f.rejudged = append(f.rejudged, submissionID)
	return nil
}

func (f *fakeService) CompileSPJ(ctx context.Context, problemID int64, contest bool) error {
	f.compiled = append(f.compiled, fmt.Sprintf("%d:%v", problemID, contest))
	return nil
}

func (f *fakeService) ContestRank(ctx context.Context, contestID int64, forceRefresh, admin bool) (*model.RankSnapshot, error) {
	f.rankCalls = append(f.rankCalls, fmt.Sprintf("%d:%v:%v", contestID, forceRefresh, admin))
	return &model.RankSnapshot{ContestID: contestID, RuleType: model.RuleACM}, nil
}

func newRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	controller.Routes{
		Dispatch:      controller.NewDispatchController(svc),
		Admin:         controller.NewAdminController(svc),
		Rank:          controller.NewRankController(svc),
		Authenticator: auth.NewAuthenticator(jwtSecret, jwtIssuer),
		JudgeToken:    judgeToken,
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	}.Register(router)
	return router
}

func bearer(t *testing.T, role string) map[string]string {
	t.Helper()
	claims := jwt.MapClaims{
		"role": role,
		"typ":  "access",
		"sub":  "1",
		"iss":  jwtIssuer,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + raw}
}

func do(router http.Handler, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestHeartbeatRequiresJudgeToken(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)
	report := map[string]interface{}{
		"hostname":       "judge-1",
		"judger_version": "2.1.0",
		"cpu_core":       4,
		"memory":         30.5,
		"cpu":            12.0,
		"service_url":    "http://judge-1:8080",
		"action":         "heartbeat",
	}

	rec, resp := do(router, http.MethodPost, "/api/v1/judge_server_heartbeat", report, nil)
	if rec.Code != http.StatusUnauthorized || resp.Code != int(pkgerrors.JudgeServerTokenError) {
		t.Fatalf("expected token error, got %d/%d", rec.Code, resp.Code)
	}

	rec, _ = do(router, http.MethodPost, "/api/v1/judge_server_heartbeat", report,
		map[string]string{auth.JudgeTokenHeader: auth.HashToken(judgeToken)})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected heartbeat accepted, got %d", rec.Code)
	}
	if len(svc.heartbeats) != 1 || svc.heartbeats[0].Hostname != "judge-1" || svc.heartbeats[0].CPUCore != 4 {
		t.Fatalf("unexpected heartbeat: %+v", svc.heartbeats)
	}
	if svc.heartbeats[0].IP == "" {
		t.Fatalf("expected client ip recorded")
	}
}

func TestDispatchIntake(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		wantCode int
		wantJobs int
	}{
		{name: "valid", body: model.Job{SubmissionID: "s1", ProblemID: 3}, wantCode: http.StatusOK, wantJobs: 1},
		{name: "missing submission", body: model.Job{ProblemID: 3}, wantCode: http.StatusBadRequest},
		{name: "malformed", body: "not-an-object", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec, _ := do(newRouter(svc), http.MethodPost, "/api/v1/dispatch", tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if len(svc.jobs) != tt.wantJobs {
				t.Fatalf("expected %d jobs, got %d", tt.wantJobs, len(svc.jobs))
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	rec, resp := do(router, http.MethodGet, "/api/v1/submissions/s1/status?test_run=1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ok, got %d", rec.Code)
	}
	var st service.SubmissionStatus
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatalf("decode status failed: %v", err)
	}
	if st.SubmissionID != "s1" || st.Result != model.VerdictJudging {
		t.Fatalf("unexpected status: %+v", st)
	}

	svc.statusErr = pkgerrors.New(pkgerrors.SubmissionNotFound)
	rec, resp = do(router, http.MethodGet, "/api/v1/submissions/s2/status", nil, nil)
	if rec.Code != http.StatusNotFound || resp.Code != int(pkgerrors.SubmissionNotFound) {
		t.Fatalf("expected not found, got %d/%d", rec.Code, resp.Code)
	}
}

func TestRankPassesAdminAndRefresh(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	if rec, _ := do(router, http.MethodGet, "/api/v1/contests/5/rank", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous rank read, got %d", rec.Code)
	}
	do(router, http.MethodGet, "/api/v1/contests/5/rank?force_refresh=1", nil, bearer(t, auth.RoleAdmin))
	if rec, _ := do(router, http.MethodGet, "/api/v1/contests/abc/rank", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for invalid id, got %d", rec.Code)
	}

	want := []string{"5:false:false", "5:true:true"}
	if len(svc.rankCalls) != len(want) {
		t.Fatalf("unexpected rank calls: %v", svc.rankCalls)
	}
	for i := range want {
		if svc.rankCalls[i] != want[i] {
			t.Fatalf("call %d: expected %s, got %s", i, want[i], svc.rankCalls[i])
		}
	}
}

func TestAdminRoutesEnforceRoles(t *testing.T) {
	disabled := true
	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		role     string
		wantCode int
	}{
		{name: "list anonymous", method: http.MethodGet, path: "/api/v1/admin/judge_servers", wantCode: http.StatusUnauthorized},
		{name: "list regular user", method: http.MethodGet, path: "/api/v1/admin/judge_servers", role: "user", wantCode: http.StatusForbidden},
		{name: "list admin", method: http.MethodGet, path: "/api/v1/admin/judge_servers", role: auth.RoleAdmin, wantCode: http.StatusOK},
		{name: "disable admin", method: http.MethodPut, path: "/api/v1/admin/judge_servers", body: service.ServerUpdate{ID: 1, IsDisabled: &disabled}, role: auth.RoleAdmin, wantCode: http.StatusOK},
		{name: "reload admin", method: http.MethodPut, path: "/api/v1/admin/judge_servers", body: service.ServerUpdate{ID: 1, IsReload: true}, role: auth.RoleAdmin, wantCode: http.StatusForbidden},
		{name: "reload super admin", method: http.MethodPut, path: "/api/v1/admin/judge_servers", body: service.ServerUpdate{ID: 1, IsReload: true}, role: auth.RoleSuperAdmin, wantCode: http.StatusOK},
		{name: "delete admin", method: http.MethodDelete, path: "/api/v1/admin/judge_servers?hostname=judge-1", role: auth.RoleAdmin, wantCode: http.StatusForbidden},
		{name: "delete super admin", method: http.MethodDelete, path: "/api/v1/admin/judge_servers?hostname=judge-1", role: auth.RoleSuperAdmin, wantCode: http.StatusOK},
		{name: "delete without hostname", method: http.MethodDelete, path: "/api/v1/admin/judge_servers", role: auth.RoleSuperAdmin, wantCode: http.StatusBadRequest},
		{name: "rejudge admin", method: http.MethodPost, path: "/api/v1/admin/submissions/s1/rejudge", role: auth.RoleAdmin, wantCode: http.StatusOK},
		{name: "compile spj contest", method: http.MethodPost, path: "/api/v1/admin/problems/9/compile_spj?contest=1", role: auth.RoleAdmin, wantCode: http.StatusOK},
		{name: "compile spj bad id", method: http.MethodPost, path: "/api/v1/admin/problems/x/compile_spj", role: auth.RoleAdmin, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			var headers map[string]string
			if tt.role != "" {
				headers = bearer(t, tt.role)
			}
			rec, _ := do(newRouter(svc), tt.method, tt.path, tt.body, headers)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAdminHandlersForwardArguments(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)
	headers := bearer(t, auth.RoleSuperAdmin)

	do(router, http.MethodDelete, "/api/v1/admin/judge_servers?hostname=judge-1", nil, headers)
	do(router, http.MethodPost, "/api/v1/admin/submissions/s1/rejudge", nil, headers)
	do(router, http.MethodPost, "/api/v1/admin/problems/9/compile_spj?contest=1", nil, headers)
	do(router, http.MethodPost, "/api/v1/admin/problems/9/compile_spj", nil, headers)

	if len(svc.removed) != 1 || svc.removed[0] != "judge-1" {
		t.Fatalf("unexpected removals: %v", svc.removed)
	}
	if len(svc.rejudged) != 1 || svc.rejudged[0] != "s1" {
		t.Fatalf("unexpected rejudges: %v", svc.rejudged)
	}
	if len(svc.compiled) != 2 || svc.compiled[0] != "9:true" || svc.compiled[1] != "9:false" {
		t.Fatalf("unexpected compile calls: %v", svc.compiled)
	}

	rec, resp := do(router, http.MethodGet, "/api/v1/admin/judge_servers", nil, headers)
	var listing service.ServerListing
	if rec.Code != http.StatusOK || json.Unmarshal(resp.Data, &listing) != nil {
		t.Fatalf("unexpected listing response: %d %s", rec.Code, rec.Body.String())
	}
	if listing.Token != judgeToken || listing.PendingLength != 2 {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newRouter(&fakeService{})
	for _, path := range []string{"/healthz", "/metrics"} {
		rec, _ := do(router, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected ok, got %d", path, rec.Code)
		}
	}
}
