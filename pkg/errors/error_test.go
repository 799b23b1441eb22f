package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "codequest/pkg/errors"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{LanguageNotSupported, 400},
		{ValidationFailed, 400},
		{InvalidCredentials, 401},
		{TokenRevoked, 401},
		{InsufficientPermission, 403},
		{ProblemNotFound, 404},
		{EmailAlreadyExists, 409},
		{ReferenceSolutionFailed, 422},
		{SubmitTooFrequently, 429},
		{InternalServerError, 500},
		{JudgeSystemError, 502},
		{JudgeTimeout, 504},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(LanguageNotSupported, "language %q is not supported", "rust")

	want := `language "rust" is not supported`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if err.Code != LanguageNotSupported {
		t.Errorf("Code = %v, want %v", err.Code, LanguageNotSupported)
	}
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(originalErr, JudgeSystemError, "submit batch failed")

	if wrappedErr.Code != JudgeSystemError {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, JudgeSystemError)
	}
	if !errors.Is(wrappedErr, originalErr) {
		t.Error("wrapped error should unwrap to the original")
	}
	if Wrapf(nil, JudgeSystemError, "x") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil error", err: nil, want: Success},
		{name: "custom error", err: New(ProblemNotFound), want: ProblemNotFound},
		{name: "wrapped custom error", err: fmt.Errorf("load: %w", New(JudgeTimeout)), want: JudgeTimeout},
		{name: "standard error", err: errors.New("standard error"), want: InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAndRetryable(t *testing.T) {
	err := New(JudgeTimeout)
	if !Is(err, JudgeTimeout) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, JudgeSystemError) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(nil, JudgeTimeout) {
		t.Error("Is() should return false for nil error")
	}
	if !Retryable(err) {
		t.Error("judge timeout should be retryable")
	}
	if Retryable(New(ReferenceSolutionFailed)) {
		t.Error("a failing reference solution is not retryable")
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError("hiddenTestCases", "at least one hidden test case is required")
	if err.Code != ValidationFailed {
		t.Error("ValidationError should use ValidationFailed code")
	}
	if err.Details["field"] != "hiddenTestCases" {
		t.Error("field detail not set")
	}
	if err.Error() != "hiddenTestCases: at least one hidden test case is required" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
