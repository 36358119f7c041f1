package judgeclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"judgehub/internal/dispatch/auth"
	"judgehub/internal/dispatch/judgeclient"
	"judgehub/internal/dispatch/language"
	"judgehub/internal/dispatch/model"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestJudgeSendsDigestAndDecodesCases(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]interface{}
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get(auth.JudgeTokenHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"err":null,"data":[{"test_case":"2","result":-1,"cpu_time":3,"memory":100,"output":"x"},{"test_case":"1","result":0,"cpu_time":5,"memory":200}]}`))
	})

	client, err := judgeclient.New("token", time.Second)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	id := "case-pack"
	out := client.Judge(context.Background(), srv.URL+"/", judgeclient.JudgeRequest{
		LanguageConfig: language.Config{Run: language.RunConfig{Command: "{exe_path}"}},
		Src:            "int main(){}",
		MaxCPUTime:     1000,
		MaxMemory:      256 << 20,
		TestCaseID:     &id,
		Output:         true,
	})
	if out.SystemError || out.CompileError {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if gotPath != "/judge" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotToken != auth.HashToken("token") {
		t.Fatalf("expected token digest, got %q", gotToken)
	}
	if gotBody["test_case_id"] != "case-pack" || gotBody["test_case"] != nil || gotBody["output"] != true {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if len(out.Cases) != 2 || out.Cases[0].TestCase != 2 || out.Cases[0].Result != model.VerdictWrongAnswer {
		t.Fatalf("unexpected cases: %+v", out.Cases)
	}
	if len(out.Raw) == 0 {
		t.Fatalf("expected raw response to be kept")
	}
}

func TestJudgeCompileError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"err":"CompileError","data":"main.c:1: error: expected ';'"}`))
	})
	client, _ := judgeclient.New("token", time.Second)
	out := client.Judge(context.Background(), srv.URL, judgeclient.JudgeRequest{})
	if !out.CompileError || out.Diagnostic != "main.c:1: error: expected ';'" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestJudgeFailuresBecomeSystemError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
		{
			name: "empty case list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"err":null,"data":[]}`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.handler)
			client, _ := judgeclient.New("token", 100*time.Millisecond)
			out := client.Judge(context.Background(), srv.URL, judgeclient.JudgeRequest{})
			if !out.SystemError {
				t.Fatalf("expected system error, got %+v", out)
			}
		})
	}

	client, _ := judgeclient.New("token", time.Second)
	if out := client.Judge(context.Background(), "http://127.0.0.1:1", judgeclient.JudgeRequest{}); !out.SystemError {
		t.Fatalf("expected unreachable server to be a system error")
	}
}

func TestCompileSPJ(t *testing.T) {
	var gotPath string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"err":null,"data":"success"}`))
	})
	client, _ := judgeclient.New("token", time.Second)
	out := client.CompileSPJ(context.Background(), srv.URL, judgeclient.CompileSPJRequest{Src: "int main(){}", SPJVersion: "v1"})
	if out.SystemError || out.CompileError {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if gotPath != "/compile_spj" {
		t.Fatalf("unexpected path %s", gotPath)
	}
}
