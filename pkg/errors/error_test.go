package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "judgehub/pkg/errors"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{ValidationFailed, 400},
		{JudgeServerTokenError, 401},
		{InsufficientRole, 403},
		{SubmissionNotFound, 404},
		{JudgeServerNotFound, 404},
		{SubmissionInFlight, 409},
		{NoJudgeServerAvailable, 503},
		{JudgeSystemError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, DatabaseError)

	if err.Code != DatabaseError {
		t.Fatalf("Code = %v, want %v", err.Code, DatabaseError)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match cause")
	}
	if Wrap(nil, DatabaseError) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := New(ProblemNotFound)
	outer := fmt.Errorf("load problem: %w", inner)

	if got := GetCode(outer); got != ProblemNotFound {
		t.Fatalf("GetCode() = %v, want %v", got, ProblemNotFound)
	}
	if !Is(outer, ProblemNotFound) {
		t.Fatalf("expected Is to match through fmt wrap")
	}
	if got := GetCode(errors.New("plain")); got != InternalServerError {
		t.Fatalf("GetCode() = %v, want %v", got, InternalServerError)
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidationError("hostname", "required")
	if err.Details["field"] != "hostname" || err.Details["reason"] != "required" {
		t.Fatalf("unexpected details: %v", err.Details)
	}
	if err.Code.HTTPStatus() != 400 {
		t.Fatalf("expected 400, got %d", err.Code.HTTPStatus())
	}
}
