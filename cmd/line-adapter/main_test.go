package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/fx"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
)

func TestAppGraphIsComplete(t *testing.T) {
	if err := fx.ValidateApp(appOptions(configFile("does-not-exist.toml"))...); err != nil {
		t.Fatalf("dependency graph: %v", err)
	}
}

func TestSignCommand(t *testing.T) {
	dir := t.TempDir()
	bodyPath := filepath.Join(dir, "body.json")
	body := []byte(`{"destination":"U0","events":[]}`)
	if err := os.WriteFile(bodyPath, body, 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"sign", "--secret", "s3cret", "--file", bodyPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("sign: %v", err)
	}
	got := strings.TrimSpace(out.String())
	if !line.Verify(got, body, "s3cret") {
		t.Fatalf("printed signature %q does not verify", got)
	}
}

func TestMenuCheckCommand(t *testing.T) {
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "menu", "check"})
	if err := root.Execute(); err != nil {
		t.Fatalf("menu check: %v", err)
	}
	text := out.String()
	for _, want := range []string{"escalate (2)", "98:", "LINEで質問: 1 payload(s)", "11: 2 payload(s)", "21: 0 payload(s)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
