package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf_Outermost(t *testing.T) {
	inner := TimestampParseError("bogus", errors.New("bad"))
	outer := Wrap(CodeMalformedWatermark, false, inner)
	wrapped := fmt.Errorf("resolve: %w", outer)

	if got := CodeOf(wrapped); got != CodeMalformedWatermark {
		t.Errorf("CodeOf = %q, want %q", got, CodeMalformedWatermark)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestIs_WalksNestedCodes(t *testing.T) {
	inner := TimestampParseError("bogus", errors.New("bad"))
	outer := Wrap(CodeMalformedWatermark, false, fmt.Errorf("ctx: %w", inner))

	if !Is(outer, CodeMalformedWatermark) {
		t.Error("expected outer code to match")
	}
	if !Is(outer, CodeTimestampParse) {
		t.Error("expected nested code to match")
	}
	if Is(outer, CodeStorage) {
		t.Error("unexpected storage code")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("x: %w", Wrap(CodeUpstreamHTTP, true, errors.New("503")))) {
		t.Error("expected retryable")
	}
	if IsRetryable(ConfigurationError("missing %s", "key")) {
		t.Error("configuration errors are not retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestError_Message(t *testing.T) {
	err := ConfigurationError("missing %s", "jc_api_key")
	if got, want := err.Error(), "E_CONFIGURATION: missing jc_api_key"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := Wrap(CodeStorage, false, nil).Error(); got != CodeStorage {
		t.Errorf("Error() with nil cause = %q", got)
	}
}
