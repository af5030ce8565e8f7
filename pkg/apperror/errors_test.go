// Package apperror provides tests for the custom error types and utility functions.
package apperror

import (
	"errors"
	"net/http"
	"testing"
)

// TestError_Error verifies that the Error() method returns the correct string format.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeProtocolError, "malformed JSON-RPC frame"),
			expected: "[PROTOCOL_ERROR] malformed JSON-RPC frame",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeInvalidArgument, "port must be 1-65535", "port"),
			expected: "[INVALID_ARGUMENT] port must be 1-65535 (field: port)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestError_Unwrap verifies that the Unwrap() method correctly returns the underlying cause.
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

// TestError_ToHTTPStatus verifies that ToHTTPStatus maps ErrorCodes to the
// dispositions named in the error handling design.
func TestError_ToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected int
	}{
		{"invalid argument", CodeInvalidArgument, http.StatusBadRequest},
		{"dispatch rejected", CodeDispatchRejected, http.StatusBadRequest},
		{"unauthenticated", CodeUnauthenticated, http.StatusUnauthorized},
		{"not found", CodeNotFound, http.StatusNotFound},
		{"transport timeout", CodeTransportTimeout, http.StatusGatewayTimeout},
		{"store unreachable", CodeStoreUnreachable, http.StatusServiceUnavailable},
		{"render failed", CodeRenderFailed, http.StatusInternalServerError},
		{"internal", CodeInternal, http.StatusInternalServerError},
		{"config invalid", CodeConfigInvalid, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test message")
			if got := err.ToHTTPStatus(); got != tt.expected {
				t.Errorf("ToHTTPStatus() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestNew verifies the New function correctly initializes an Error.
func TestNew(t *testing.T) {
	err := New(CodeParseError, "header decode failed")

	if err.Code != CodeParseError {
		t.Errorf("Code = %v, want %v", err.Code, CodeParseError)
	}
	if err.Message != "header decode failed" {
		t.Errorf("Message = %v, want %v", err.Message, "header decode failed")
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityError)
	}
}

// TestNewWarning verifies the NewWarning function correctly initializes an Error with SeverityWarning.
func TestNewWarning(t *testing.T) {
	err := NewWarning(CodeDispatchRejected, "result dropped, will be re-observed")

	if err.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityWarning)
	}
}

// TestNewCritical verifies the NewCritical function correctly initializes an Error with SeverityCritical.
func TestNewCritical(t *testing.T) {
	err := NewCritical(CodeConfigInvalid, "CLICKHOUSE_HOST is required")

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestWithDetails verifies that WithDetails adds key-value pairs to the error's details map.
func TestWithDetails(t *testing.T) {
	err := New(CodeParseError, "invalid").
		WithDetails("hostname", "electrum.example.com").
		WithDetails("port", 50002)

	if err.Details["hostname"] != "electrum.example.com" {
		t.Errorf("Details[hostname] = %v, want electrum.example.com", err.Details["hostname"])
	}
	if err.Details["port"] != 50002 {
		t.Errorf("Details[port] = %v, want 50002", err.Details["port"])
	}
}

// TestWithField verifies that WithField sets the field of the error.
func TestWithField(t *testing.T) {
	err := New(CodeInvalidArgument, "invalid hostname").WithField("hostname")

	if err.Field != "hostname" {
		t.Errorf("Field = %v, want hostname", err.Field)
	}
}

// TestWithSeverity verifies that WithSeverity sets the severity level of the error.
func TestWithSeverity(t *testing.T) {
	err := New(CodeConfigInvalid, "invalid").WithSeverity(SeverityCritical)

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestIs verifies the Is function correctly identifies errors by their ErrorCode.
func TestIs(t *testing.T) {
	err := New(CodeTransportTimeout, "deadline exceeded")

	if !Is(err, CodeTransportTimeout) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, CodeProtocolError) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(errors.New("regular error"), CodeTransportTimeout) {
		t.Error("Is() should return false for non-Error")
	}
}

// TestCode verifies the Code function correctly extracts the ErrorCode.
func TestCode(t *testing.T) {
	err := New(CodeNotFound, "target not found")

	if Code(err) != CodeNotFound {
		t.Errorf("Code() = %v, want %v", Code(err), CodeNotFound)
	}

	regularErr := errors.New("regular error")
	if Code(regularErr) != CodeInternal {
		t.Errorf("Code() for regular error = %v, want %v", Code(regularErr), CodeInternal)
	}
}

// TestToHTTP verifies the ToHTTP function's behavior with different error types.
func TestToHTTP(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if ToHTTP(nil) != http.StatusOK {
			t.Error("ToHTTP(nil) should return 200")
		}
	})

	t.Run("app error", func(t *testing.T) {
		err := New(CodeNotFound, "target not found")
		if got := ToHTTP(err); got != http.StatusNotFound {
			t.Errorf("ToHTTP() = %v, want %v", got, http.StatusNotFound)
		}
	})

	t.Run("regular error", func(t *testing.T) {
		err := errors.New("regular error")
		if got := ToHTTP(err); got != http.StatusInternalServerError {
			t.Errorf("ToHTTP() = %v, want %v", got, http.StatusInternalServerError)
		}
	})
}

// TestTransportErrorType verifies the mapping from transport error codes to
// the error_type string stored on a probe result row.
func TestTransportErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"timeout", New(CodeTransportTimeout, "timed out"), "timeout_error"},
		{"host unreachable", New(CodeTransportRefused, "refused"), "host_unreachable"},
		{"tor error", New(CodeTransportTor, "socks failed"), "tor_error"},
		{"connection error", New(CodeTransportOther, "tls failed"), "connection_error"},
		{"protocol error", New(CodeProtocolError, "bad rpc"), "protocol_error"},
		{"parse error", New(CodeParseError, "bad header"), "parse_error"},
		{"non app error", errors.New("plain"), "connection_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransportErrorType(tt.err); got != tt.expected {
				t.Errorf("TransportErrorType() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestIsWarning verifies the IsWarning function correctly identifies warning errors.
func TestIsWarning(t *testing.T) {
	warning := NewWarning(CodeDispatchRejected, "dropped")
	err := New(CodeParseError, "invalid")

	if !IsWarning(warning) {
		t.Error("IsWarning() should return true for warning")
	}
	if IsWarning(err) {
		t.Error("IsWarning() should return false for error")
	}
}

// TestIsCritical verifies the IsCritical function correctly identifies critical errors.
func TestIsCritical(t *testing.T) {
	critical := NewCritical(CodeConfigInvalid, "critical")
	err := New(CodeParseError, "invalid")

	if !IsCritical(critical) {
		t.Error("IsCritical() should return true for critical")
	}
	if IsCritical(err) {
		t.Error("IsCritical() should return false for error")
	}
}

// TestSeverity_String verifies the String method of Severity returns the correct string representation.
func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.expected {
			t.Errorf("Severity.String() = %v, want %v", got, tt.expected)
		}
	}
}

// TestValidationErrors verifies the functionality of the ValidationErrors collection.
func TestValidationErrors(t *testing.T) {
	t.Run("new validation errors", func(t *testing.T) {
		ve := NewValidationErrors()
		if ve.HasErrors() {
			t.Error("new ValidationErrors should not have errors")
		}
		if ve.HasWarnings() {
			t.Error("new ValidationErrors should not have warnings")
		}
		if !ve.IsValid() {
			t.Error("new ValidationErrors should be valid")
		}
	})

	t.Run("add error", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeInvalidArgument, "invalid port")

		if !ve.HasErrors() {
			t.Error("should have errors")
		}
		if ve.IsValid() {
			t.Error("should not be valid")
		}
		if len(ve.Errors) != 1 {
			t.Errorf("errors count = %d, want 1", len(ve.Errors))
		}
	})

	t.Run("add warning", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeDispatchRejected, "dropped")

		if !ve.HasWarnings() {
			t.Error("should have warnings")
		}
		if !ve.IsValid() {
			t.Error("should be valid (warnings don't affect validity)")
		}
	})

	t.Run("add error with field", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddErrorWithField(CodeInvalidArgument, "invalid", "hostname")

		if ve.Errors[0].Field != "hostname" {
			t.Errorf("Field = %v, want hostname", ve.Errors[0].Field)
		}
	})

	t.Run("add via Add method", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.Add(NewWarning(CodeDispatchRejected, "warning"))
		ve.Add(New(CodeInvalidArgument, "error"))

		if len(ve.Warnings) != 1 {
			t.Errorf("warnings count = %d, want 1", len(ve.Warnings))
		}
		if len(ve.Errors) != 1 {
			t.Errorf("errors count = %d, want 1", len(ve.Errors))
		}
	})

	t.Run("merge", func(t *testing.T) {
		ve1 := NewValidationErrors()
		ve1.AddError(CodeInvalidArgument, "error1")

		ve2 := NewValidationErrors()
		ve2.AddError(CodeNotFound, "error2")
		ve2.AddWarning(CodeDispatchRejected, "warning")

		ve1.Merge(ve2)

		if len(ve1.Errors) != 2 {
			t.Errorf("errors count = %d, want 2", len(ve1.Errors))
		}
		if len(ve1.Warnings) != 1 {
			t.Errorf("warnings count = %d, want 1", len(ve1.Warnings))
		}
	})

	t.Run("merge nil", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.Merge(nil) // should not panic
	})

	t.Run("error messages", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeInvalidArgument, "error1")
		ve.AddError(CodeNotFound, "error2")

		messages := ve.ErrorMessages()
		if len(messages) != 2 {
			t.Errorf("messages count = %d, want 2", len(messages))
		}
	})

	t.Run("warning messages", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeDispatchRejected, "warning1")

		messages := ve.WarningMessages()
		if len(messages) != 1 {
			t.Errorf("messages count = %d, want 1", len(messages))
		}
		if messages[0] != "warning1" {
			t.Errorf("message = %v, want warning1", messages[0])
		}
	})
}

// TestPredefinedErrors verifies that all predefined errors are correctly initialized.
func TestPredefinedErrors(t *testing.T) {
	predefinedErrors := []*Error{
		ErrTimeout,
		ErrHostUnreachable,
		ErrTorConnect,
		ErrStoreUnreachable,
		ErrNotFound,
		ErrUnauthenticated,
	}

	for _, err := range predefinedErrors {
		if err == nil {
			t.Error("predefined error should not be nil")
			continue
		}
		if err.Code == "" {
			t.Error("predefined error should have a code")
		}
		if err.Message == "" {
			t.Error("predefined error should have a message")
		}
	}
}
