package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "hitpoints ") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestSeedCommand_RequiresDurableStore(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	root := newRootCmd()
	root.SetArgs([]string{"seed"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "durable") {
		t.Fatalf("expected durable store error, got %v", err)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	root := newRootCmd()
	root.SetArgs([]string{"seed"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected config error")
	}
}
