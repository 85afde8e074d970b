package services_test

import (
	"errors"
	"strings"
	"testing"

	"dualsubs/internal/history"
	"dualsubs/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUpstream, "opensubtitles", "download", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"opensubtitles", "download", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "merge", "parse", "invalid", nil)
	if status := services.FailureStatus(validationErr); status != history.StatusRejected {
		t.Fatalf("expected rejected for validation error, got %s", status)
	}

	upstreamErr := services.Wrap(services.ErrUpstream, "opensubtitles", "search", "http 500", errors.New("io"))
	if status := services.FailureStatus(upstreamErr); status != history.StatusFailed {
		t.Fatalf("expected failed for upstream error, got %s", status)
	}
}

func TestExitCode(t *testing.T) {
	if code := services.ExitCode(nil); code != 0 {
		t.Fatalf("expected 0 for nil, got %d", code)
	}
	cfgErr := services.Wrap(services.ErrConfiguration, "merge", "options", "bad tolerance", nil)
	if code := services.ExitCode(cfgErr); code != 2 {
		t.Fatalf("expected 2 for configuration error, got %d", code)
	}
	if code := services.ExitCode(errors.New("other")); code != 1 {
		t.Fatalf("expected 1 for other errors, got %d", code)
	}
}
