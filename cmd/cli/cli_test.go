package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Siddarth2230/qrlinks/internal/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("QRLINK_DATABASE_DRIVER", "sqlite")
	t.Setenv("QRLINK_DATABASE_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("QRLINK_SERVER_BASE_URL", "https://qr.example")
	t.Setenv("QRLINK_LOG_LEVEL", "error")
}

var codeLine = regexp.MustCompile(`Code:\s+(\S+)`)

func TestCLI_CreateShowRewriteDelete(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "create", "--target", "https://a.example", "--event", "evt-1")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	m := codeLine.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no code in output:\n%s", out)
	}
	code := m[1]
	if !strings.Contains(out, "https://qr.example/s/"+code) {
		t.Errorf("short URL missing from output:\n%s", out)
	}

	out, err = run(t, "show", "--event", "evt-1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, code) {
		t.Errorf("show by event did not return %s:\n%s", code, out)
	}

	out, err = run(t, "rewrite", code, "https://b.example")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !strings.Contains(out, "https://b.example") {
		t.Errorf("rewrite output:\n%s", out)
	}

	out, err = run(t, "delete", "--event", "evt-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deleted 1 link(s)") {
		t.Errorf("delete output:\n%s", out)
	}

	if _, err := run(t, "show", code); err == nil {
		t.Error("show after delete should fail")
	}
}

func TestCLI_ArgumentErrors(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "show"); err == nil {
		t.Error("show without code or --event should fail")
	}
	if _, err := run(t, "delete", "abcd", "--event", "e"); err == nil {
		t.Error("delete with both code and --event should fail")
	}
	if _, err := run(t, "create"); err == nil {
		t.Error("create without --target should fail")
	}
}

func TestCLI_Token(t *testing.T) {
	setupEnv(t)
	t.Setenv("QRLINK_AUTH_JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "--id", "ops", "--role", "admin")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	p, err := auth.NewTokenManager("cli-secret", time.Hour).Parse(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.ID != "ops" || !p.IsAdmin() {
		t.Errorf("principal = %+v", p)
	}

	if _, err := run(t, "token", "--id", "ops", "--role", "root"); err == nil {
		t.Error("unknown role should fail")
	}
}
