package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeDescriptorNotFound  ErrorCode = "CONFIG-001"
	ErrCodeDescriptorParse     ErrorCode = "CONFIG-002"
	ErrCodeDescriptorSchema    ErrorCode = "CONFIG-003"
	ErrCodeAliasCycle          ErrorCode = "CONFIG-004"
	ErrCodeExtendNotFound      ErrorCode = "CONFIG-005"
	ErrCodeExtendCycle         ErrorCode = "CONFIG-006"
	ErrCodeTaskInvalid         ErrorCode = "CONFIG-007"
	ErrCodeFunctionInvalid     ErrorCode = "CONFIG-008"
	ErrCodeMinVersion          ErrorCode = "CONFIG-009"
	ErrCodeEnvValueInvalid     ErrorCode = "CONFIG-010"
	ErrCodePlatformOverrideBad ErrorCode = "CONFIG-011"

	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanCyclicDep   ErrorCode = "PLAN-001"
	ErrCodePlanTaskMissing ErrorCode = "PLAN-002"
	ErrCodePlanPrivateTask ErrorCode = "PLAN-003"
	ErrCodePlanNoMembers   ErrorCode = "PLAN-004"
	ErrCodePlanSkipPattern ErrorCode = "PLAN-005"

	// Condition errors (COND-001 to COND-099)
	ErrCodeConditionInvalid ErrorCode = "COND-001"
	ErrCodeConditionScript  ErrorCode = "COND-002"

	// Install errors (INSTALL-001 to INSTALL-099)
	ErrCodeInstallFailed ErrorCode = "INSTALL-001"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeTaskFailed    ErrorCode = "EXEC-001"
	ErrCodeEngineFailed  ErrorCode = "EXEC-002"
	ErrCodeCompileFailed ErrorCode = "EXEC-003"
	ErrCodeSpawnFailed   ErrorCode = "EXEC-004"
	ErrCodeNestedFlow    ErrorCode = "EXEC-005"
	ErrCodeTaskRecursion ErrorCode = "EXEC-006"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
)

// Category returns the category prefix of the code, e.g. "CONFIG".
func (c ErrorCode) Category() string {
	s := string(c)
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// MakeflowError represents an enhanced error with code, suggestions, and documentation
type MakeflowError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *MakeflowError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *MakeflowError) Unwrap() error {
	return e.Cause
}

// New creates a new MakeflowError
func New(code ErrorCode, message string) *MakeflowError {
	return &MakeflowError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new MakeflowError with a formatted message
func Newf(code ErrorCode, format string, args ...any) *MakeflowError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new MakeflowError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *MakeflowError {
	return &MakeflowError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *MakeflowError) WithSuggestion(suggestion string) *MakeflowError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *MakeflowError) WithSuggestions(suggestions ...string) *MakeflowError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *MakeflowError) WithDocs(url string) *MakeflowError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first MakeflowError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var mfErr *MakeflowError
	if stderrors.As(err, &mfErr) {
		return mfErr.Code, true
	}
	return "", false
}

// Is reports whether err's chain contains a MakeflowError with the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var mfErr *MakeflowError
		if !stderrors.As(err, &mfErr) {
			return false
		}
		if mfErr.Code == code {
			return true
		}
		err = mfErr.Cause
	}
	return false
}

// Common error constructors for frequently used errors

// NewDescriptorNotFoundError creates a descriptor file not found error
func NewDescriptorNotFoundError(path string) *MakeflowError {
	return New(ErrCodeDescriptorNotFound, fmt.Sprintf("descriptor file not found: %s", path)).
		WithSuggestion("Create a Makefile.toml in the working directory").
		WithSuggestion("Point to another descriptor with --makefile <path>")
}

// NewDescriptorParseError creates a descriptor parse error
func NewDescriptorParseError(path string, format string, cause error) *MakeflowError {
	return Wrap(ErrCodeDescriptorParse, fmt.Sprintf("failed to parse %s descriptor: %s", format, path), cause).
		WithSuggestion("Check the file syntax").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}

// NewAliasCycleError creates an alias cycle error with the resolved chain
func NewAliasCycleError(name string, chain []string) *MakeflowError {
	return New(ErrCodeAliasCycle, fmt.Sprintf("detected cycle while resolving alias %s: %s", name, strings.Join(chain, " -> "))).
		WithSuggestion("Remove one of the alias entries in the chain")
}

// NewExtendNotFoundError creates an unresolvable extend target error
func NewExtendNotFoundError(task string, target string) *MakeflowError {
	return New(ErrCodeExtendNotFound, fmt.Sprintf("task %s extends unknown task %s", task, target)).
		WithSuggestion("Check the extend attribute for typos").
		WithSuggestion("Run 'makeflow list' to see the available tasks")
}

// NewTaskNotFoundError creates a missing task error
func NewTaskNotFoundError(name string) *MakeflowError {
	return New(ErrCodePlanTaskMissing, fmt.Sprintf("task %s not found", name)).
		WithSuggestion("Run 'makeflow list' to see the available tasks")
}

// NewCyclicDependencyError creates a dependency cycle error with the cycle path
func NewCyclicDependencyError(path []string) *MakeflowError {
	return New(ErrCodePlanCyclicDep, fmt.Sprintf("circular dependency detected: %s", strings.Join(path, " -> "))).
		WithSuggestion("Remove one of the dependencies in the cycle")
}

// NewPrivateTaskError creates an error for invoking a private task directly
func NewPrivateTaskError(name string) *MakeflowError {
	return New(ErrCodePlanPrivateTask, fmt.Sprintf("task %s is private", name)).
		WithSuggestion("Invoke a public task that depends on it").
		WithSuggestion("Use --allow-private to run private tasks directly")
}

// NewFunctionError creates an invalid built-in function call error
func NewFunctionError(function string, details string) *MakeflowError {
	return New(ErrCodeFunctionInvalid, fmt.Sprintf("invalid call to function %s: %s", function, details))
}

// NewTaskFailedError creates a task execution failure
func NewTaskFailedError(task string, cause error) *MakeflowError {
	return Wrap(ErrCodeTaskFailed, fmt.Sprintf("task %s failed", task), cause)
}

// NewTaskRecursionError creates an error for a task invoked again while it
// is still running, with the chain of active tasks
func NewTaskRecursionError(chain []string) *MakeflowError {
	return New(ErrCodeTaskRecursion, fmt.Sprintf("task invoked itself: %s", strings.Join(chain, " -> "))).
		WithSuggestion("Break the run_task chain or guard it with a condition on another task")
}

// NewInstallFailedError creates an install failure for a task requirement
func NewInstallFailedError(task string, requirement string) *MakeflowError {
	return New(ErrCodeInstallFailed, fmt.Sprintf("failed to install %s required by task %s", requirement, task)).
		WithSuggestion("Install the requirement manually").
		WithSuggestion("Set force = true on the task to run it anyway")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *MakeflowError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}
