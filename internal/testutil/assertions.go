package testutil

import (
	stderrors "errors"
	"testing"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// AssertErrorCode checks if an error has a specific error code.
func AssertErrorCode(t testing.TB, err error, expectedCode errors.Code) {
	t.Helper()

	if err == nil {
		t.Errorf("expected error with code %s, but got nil", expectedCode)
		return
	}

	if actual := errors.GetCode(err); actual != expectedCode {
		t.Errorf("expected error code %s, but got %s (error: %v)", expectedCode, actual, err)
	}
}

// AssertProbeFailure checks that err carries a probe failure code and the
// backend's operation name.
func AssertProbeFailure(t testing.TB, err error, expectedCode errors.Code, backend string) {
	t.Helper()

	AssertErrorCode(t, err, expectedCode)
	if err == nil {
		return
	}
	if !expectedCode.IsProbeFailure() {
		t.Errorf("code %s is not a probe failure code", expectedCode)
	}
	var e *errors.Error
	if stderrors.As(err, &e) && e.Op != backend+".Detect" {
		t.Errorf("expected op %q, got %q", backend+".Detect", e.Op)
	}
}

// AssertLogContains checks if the logger recorded a message containing substring.
func AssertLogContains(t testing.TB, logger *RecordingLogger, substring string) {
	t.Helper()

	if !logger.ContainsMessage(substring) {
		var msgs []string
		for _, m := range logger.Messages() {
			msgs = append(msgs, m.Message)
		}
		t.Errorf("expected log to contain %q, but it doesn't (messages: %v)", substring, msgs)
	}
}

// AssertLogLevel checks if a message was logged at a specific level.
func AssertLogLevel(t testing.TB, logger *RecordingLogger, level logging.Level, substring string) {
	t.Helper()

	if !logger.ContainsMessageAtLevel(level, substring) {
		t.Errorf("expected log at level %s to contain %q, but it doesn't", level, substring)
	}
}
