package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	out, err := execute(t, "G1043D and G14313D, then G1043D again", "extract", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if out != "G1043D\nG14313D\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("REDIS_ADDR", "")

	out, err := execute(t, "", "migrate", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	if !strings.Contains(out, "schema version 2") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunCommandRequiresInput(t *testing.T) {
	runPending = 0
	if _, err := execute(t, "", "run", "--env-file", filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatal("expected error without ids or --pending")
	}
}
