package services_test

import (
	"errors"
	"strings"
	"testing"

	"quiltrender/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrIO, "render", "write view", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "write view", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "render failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestKindAndExitCode(t *testing.T) {
	cases := []struct {
		err  error
		kind string
		code int
	}{
		{nil, "", 0},
		{services.Wrap(services.ErrConfiguration, "preflight", "", "bad path", nil), "configuration", 2},
		{services.Wrap(services.ErrResume, "resume", "", "missing view", nil), "resume", 1},
		{services.Wrap(services.ErrAssembly, "assemble", "", "", nil), "assembly", 1},
		{errors.New("other"), "error", 1},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.ExitCode(tc.err); got != tc.code {
			t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.code)
		}
	}
}
