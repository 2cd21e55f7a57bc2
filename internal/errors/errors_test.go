package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(ArchiveUnreadable, "cannot open lib.jar", cause)

	if err.Code != ArchiveUnreadable {
		t.Errorf("Code = %v, want %v", err.Code, ArchiveUnreadable)
	}
	if err.Message != "cannot open lib.jar" {
		t.Errorf("Message = %q, want %q", err.Message, "cannot open lib.jar")
	}
}

func TestAnalysisError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      ClassMalformed,
			message:   "bad class com/example/Foo.class",
			cause:     errors.New("truncated constant pool"),
			wantParts: []string{"CLASS_MALFORMED", "bad class", "truncated constant pool"},
		},
		{
			name:      "without cause",
			code:      InputMissing,
			message:   "variant 'debug' not found",
			cause:     nil,
			wantParts: []string{"INPUT_MISSING", "variant 'debug' not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestAnalysisError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause")
	}

	if New(ReportWriteFailed, "disk full", nil).Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestWithDetails(t *testing.T) {
	err := Newf(InputInvalid, "duplicate variant %q", "debug").WithDetails(map[string]string{"variant": "debug"})
	if err.Details == nil {
		t.Fatal("Details should be set")
	}
	if err.Message != `duplicate variant "debug"` {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("analyze debug: %w", New(ArchiveUnreadable, "open", nil))

	if got := CodeOf(wrapped); got != ArchiveUnreadable {
		t.Errorf("CodeOf() = %v, want %v", got, ArchiveUnreadable)
	}
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %v, want %v", got, InternalError)
	}
}

func TestHasCode(t *testing.T) {
	inner := New(ClassMalformed, "bad magic", nil)
	outer := New(ArchiveUnreadable, "scan lib.jar", inner)

	if !HasCode(outer, ArchiveUnreadable) {
		t.Error("HasCode should match the outer code")
	}
	if !HasCode(outer, ClassMalformed) {
		t.Error("HasCode should match a nested code")
	}
	if HasCode(outer, ReportWriteFailed) {
		t.Error("HasCode should not match an absent code")
	}
}
