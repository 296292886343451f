package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeTaskInvalid, "test error message")

	if err.Code != ErrCodeTaskInvalid {
		t.Errorf("expected code %s, got %s", ErrCodeTaskInvalid, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeFileReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFileReadFailed, err.Code)
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *MakeflowError
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeDescriptorSchema, "invalid descriptor"),
			wantCode: "CONFIG-003",
			wantMsg:  "invalid descriptor",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeFileReadFailed, "read failed", fmt.Errorf("permission denied")),
			wantCode: "IO-002",
			wantMsg:  "permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestions(t *testing.T) {
	err := New(ErrCodeTaskFailed, "task failed").
		WithSuggestion("Suggestion 1").
		WithSuggestions("Suggestion 2", "Suggestion 3").
		WithDocs("https://example.com/docs")

	if len(err.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	for _, suggestion := range err.Suggestions {
		if !strings.Contains(errStr, suggestion) {
			t.Errorf("error string should contain suggestion: %s", suggestion)
		}
	}
	if !strings.Contains(errStr, "Documentation: https://example.com/docs") {
		t.Errorf("error string should contain docs URL")
	}
}

func TestCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeAliasCycle:    "CONFIG",
		ErrCodePlanCyclicDep: "PLAN",
		ErrCodeInstallFailed: "INSTALL",
		ErrorCode("BARE"):    "BARE",
	}
	for code, want := range tests {
		if got := code.Category(); got != want {
			t.Errorf("Category(%s) = %s, want %s", code, got, want)
		}
	}
}

func TestCodeOfAndIs(t *testing.T) {
	inner := NewInstallFailedError("build", "tool")
	outer := NewTaskFailedError("build", inner)
	wrapped := fmt.Errorf("flow: %w", outer)

	code, ok := CodeOf(wrapped)
	if !ok || code != ErrCodeTaskFailed {
		t.Errorf("CodeOf = %s, %v; want %s", code, ok, ErrCodeTaskFailed)
	}

	if !Is(wrapped, ErrCodeInstallFailed) {
		t.Errorf("expected nested install code to be found")
	}
	if Is(wrapped, ErrCodeAliasCycle) {
		t.Errorf("unexpected alias cycle code")
	}
	if _, ok := CodeOf(fmt.Errorf("plain")); ok {
		t.Errorf("plain error should have no code")
	}
}

func TestNewAliasCycleError(t *testing.T) {
	err := NewAliasCycleError("a", []string{"a", "b", "a"})

	if err.Code != ErrCodeAliasCycle {
		t.Errorf("expected code %s, got %s", ErrCodeAliasCycle, err.Code)
	}
	if !strings.Contains(err.Message, "a -> b -> a") {
		t.Errorf("message should contain the alias chain, got %s", err.Message)
	}
}

func TestNewCyclicDependencyError(t *testing.T) {
	err := NewCyclicDependencyError([]string{"a", "b", "a"})

	if !strings.Contains(err.Error(), "circular dependency detected: a -> b -> a") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if len(err.Suggestions) == 0 {
		t.Errorf("expected suggestions to be provided")
	}
}
