package exitcode

import (
	"os"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates the flow completed with no unignored failure
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// TaskFailure indicates a task failed while executing
	TaskFailure = 3

	// InstallFailure indicates a task requirement could not be installed
	InstallFailure = 4

	// ConditionError indicates a task condition could not be evaluated
	ConditionError = 5

	// ConfigError indicates a descriptor or planning error detected before execution
	ConfigError = 6

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code, ok := errors.CodeOf(err); ok {
		// a task failure caused by an install or condition error reports the root phase
		switch {
		case errors.Is(err, errors.ErrCodeInstallFailed):
			return InstallFailure
		case errors.Is(err, errors.ErrCodeConditionInvalid), errors.Is(err, errors.ErrCodeConditionScript):
			return ConditionError
		}

		switch code.Category() {
		case "CONFIG", "PLAN":
			return ConfigError
		case "INSTALL":
			return InstallFailure
		case "COND":
			return ConditionError
		case "EXEC":
			return TaskFailure
		}
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown shorthand flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "missing argument") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case TaskFailure:
		return "Task failed"
	case InstallFailure:
		return "Requirement installation failed"
	case ConditionError:
		return "Condition evaluation error"
	case ConfigError:
		return "Configuration or planning error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
