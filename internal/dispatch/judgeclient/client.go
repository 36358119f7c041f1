// Package judgeclient talks to remote judge servers over HTTP.
package judgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"judgehub/internal/dispatch/auth"
	"judgehub/internal/dispatch/language"
	"judgehub/internal/dispatch/metrics"
	"judgehub/internal/dispatch/model"
	"judgehub/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	DefaultTimeout = 180 * time.Second

	endpointJudge      = "judge"
	endpointCompileSPJ = "compile_spj"

	maxResponseBytes = 64 << 20
)

// JudgeRequest is the body of POST /judge. Exactly one of TestCaseID and TestCase is set.
type JudgeRequest struct {
	LanguageConfig   language.Config         `json:"language_config"`
	Src              string                  `json:"src"`
	MaxCPUTime       int64                   `json:"max_cpu_time"`
	MaxMemory        int64                   `json:"max_memory"`
	TestCaseID       *string                 `json:"test_case_id"`
	TestCase         []model.Sample          `json:"test_case"`
	Output           bool                    `json:"output"`
	SPJVersion       *string                 `json:"spj_version"`
	SPJConfig        *language.RunConfig     `json:"spj_config"`
	SPJCompileConfig *language.CompileConfig `json:"spj_compile_config"`
	SPJSrc           *string                 `json:"spj_src"`
}

// CompileSPJRequest is the body of POST /compile_spj.
type CompileSPJRequest struct {
	Src              string                 `json:"src"`
	SPJVersion       string                 `json:"spj_version"`
	SPJCompileConfig language.CompileConfig `json:"spj_compile_config"`
}

// Outcome is the interpreted server answer. Exactly one of SystemError, CompileError or Cases applies.
type Outcome struct {
	SystemError  bool
	CompileError bool
	// Diagnostic is the compiler output for CompileError.
	Diagnostic string
	Cases      []model.CaseResult
	// Raw is the undecoded response body.
	Raw json.RawMessage
}

type envelope struct {
	Err  *string         `json:"err"`
	Data json.RawMessage `json:"data"`
}

// Client posts jobs to judge servers with the shared token digest.
type Client struct {
	http        *http.Client
	tokenDigest string
}

// New creates a client. A non-positive timeout uses DefaultTimeout.
func New(token string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		tokenDigest: auth.HashToken(token),
	}, nil
}

// Judge runs a submission on the server at serviceURL. Failures are folded into a SystemError outcome.
func (c *Client) Judge(ctx context.Context, serviceURL string, req JudgeRequest) Outcome {
	body, err := c.post(ctx, serviceURL, endpointJudge, req)
	if err != nil {
		logger.Error(ctx, "judge request failed", zap.String("service_url", serviceURL), zap.Error(err))
		return Outcome{SystemError: true}
	}
	out, err := decodeJudge(body)
	if err != nil {
		logger.Error(ctx, "judge response invalid", zap.String("service_url", serviceURL), zap.Error(err))
		return Outcome{SystemError: true, Raw: body}
	}
	return out
}

// CompileSPJ compiles a special judge on the server at serviceURL.
func (c *Client) CompileSPJ(ctx context.Context, serviceURL string, req CompileSPJRequest) Outcome {
	body, err := c.post(ctx, serviceURL, endpointCompileSPJ, req)
	if err != nil {
		logger.Error(ctx, "compile spj request failed", zap.String("service_url", serviceURL), zap.Error(err))
		return Outcome{SystemError: true}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		logger.Error(ctx, "compile spj response invalid", zap.String("service_url", serviceURL), zap.Error(err))
		return Outcome{SystemError: true, Raw: body}
	}
	if env.Err != nil {
		return Outcome{CompileError: true, Diagnostic: dataString(env.Data), Raw: body}
	}
	return Outcome{Raw: body}
}

func (c *Client) post(ctx context.Context, serviceURL, endpoint string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request failed: %w", err)
	}
	url := strings.TrimRight(serviceURL, "/") + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.JudgeTokenHeader, c.tokenDigest)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveJudgeRequest(endpoint, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func decodeJudge(body []byte) (Outcome, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Outcome{}, fmt.Errorf("decode envelope failed: %w", err)
	}
	if env.Err != nil {
		return Outcome{CompileError: true, Diagnostic: dataString(env.Data), Raw: body}, nil
	}
	var cases []model.CaseResult
	if err := json.Unmarshal(env.Data, &cases); err != nil {
		return Outcome{}, fmt.Errorf("decode cases failed: %w", err)
	}
	if len(cases) == 0 {
		return Outcome{}, errors.New("no test case results")
	}
	return Outcome{Cases: cases, Raw: body}, nil
}

// dataString renders the data field as text; servers send compiler output as a JSON string.
func dataString(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	if len(data) == 0 || string(data) == "null" {
		return ""
	}
	return string(data)
}
