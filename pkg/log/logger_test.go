package log

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/wpca/pkg/errors"
)

// TestSetLogger_RoutesWarnings verifies that warnings raised through
// pkg/errors are emitted as structured events on the installed logger.
func TestSetLogger_RoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() {
		errors.SetZerologWarnFunc(nil)
		SetLogger(zerolog.New(io.Discard))
	})

	errors.Warn(errors.NewDegenerateSampleWarning("EMPCA", 4, "all weights zero"))

	out := buf.String()
	if !strings.Contains(out, `"type":"DegenerateSampleWarning"`) {
		t.Errorf("expected structured warning type in output: %s", out)
	}
	if !strings.Contains(out, `"sample":4`) {
		t.Errorf("expected sample index in output: %s", out)
	}
}

// TestSetLogger_EmbedsConvergenceFields verifies the object marshaler path
// for warning types carrying algorithm context.
func TestSetLogger_EmbedsConvergenceFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() {
		errors.SetZerologWarnFunc(nil)
		SetLogger(zerolog.New(io.Discard))
	})

	errors.Warn(errors.NewConvergenceWarning("EMPCA", 100, "residual did not stabilize"))

	out := buf.String()
	if !strings.Contains(out, `"algorithm":"EMPCA"`) || !strings.Contains(out, `"iterations":100`) {
		t.Errorf("expected algorithm context in output: %s", out)
	}
}

// TestSetup_AppliesLevel verifies level parsing, including the fallback for
// unknown level names.
func TestSetup_AppliesLevel(t *testing.T) {
	t.Cleanup(func() {
		errors.SetZerologWarnFunc(nil)
		SetLogger(zerolog.New(io.Discard))
	})

	Setup("warn")
	if got := GetLogger().GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %v", got)
	}

	Setup("not-a-level")
	if got := GetLogger().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", got)
	}
}
