package config

import "testing"

func TestEnvOr(t *testing.T) {
	t.Setenv("PTYCTL_TEST_STR", "")
	if got := envOr("PTYCTL_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for unset var, got %q", got)
	}

	t.Setenv("PTYCTL_TEST_STR", "custom")
	if got := envOr("PTYCTL_TEST_STR", "fallback"); got != "custom" {
		t.Errorf("expected custom, got %q", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("PTYCTL_TEST_INT", "")
	if got := envInt("PTYCTL_TEST_INT", 42); got != 42 {
		t.Errorf("expected fallback 42 for unset var, got %d", got)
	}

	t.Setenv("PTYCTL_TEST_INT", "99")
	if got := envInt("PTYCTL_TEST_INT", 42); got != 99 {
		t.Errorf("expected 99, got %d", got)
	}

	t.Setenv("PTYCTL_TEST_INT", "not-a-number")
	if got := envInt("PTYCTL_TEST_INT", 42); got != 42 {
		t.Errorf("expected fallback 42 for malformed var, got %d", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("PTYCTL_TEST_BOOL", "")
	if envBool("PTYCTL_TEST_BOOL", true) != true {
		t.Error("expected fallback true for unset var")
	}

	t.Setenv("PTYCTL_TEST_BOOL", "true")
	if envBool("PTYCTL_TEST_BOOL", false) != true {
		t.Error("expected true")
	}

	t.Setenv("PTYCTL_TEST_BOOL", "0")
	if envBool("PTYCTL_TEST_BOOL", true) != false {
		t.Error("expected false for 0")
	}

	t.Setenv("PTYCTL_TEST_BOOL", "not-a-bool")
	if envBool("PTYCTL_TEST_BOOL", false) != false {
		t.Error("expected fallback false for malformed var")
	}
}

func TestControlModeConstants(t *testing.T) {
	if ControlModeReadWrite != "readwrite" || ControlModeReadOnly != "readonly" || ControlModeDisabled != "disabled" {
		t.Errorf("control mode constants changed wire value: %q %q %q", ControlModeReadWrite, ControlModeReadOnly, ControlModeDisabled)
	}
}
