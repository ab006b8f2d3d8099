package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flagpole/c2/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastConfig(t *testing.T) string {
	return writeFile(t, "c2.yaml", `
session:
  tick: 10ms
ownership:
  seed: 3
log:
  level: error
`)
}

func TestRunCompletesSession(t *testing.T) {
	nodes := writeFile(t, "nodes.txt", "# lab\n10.0.0.1\n10.0.0.2\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", fastConfig(t), "--time", "0.002", nodes}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0; stderr:\n%s", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"Time Elapsed:", "team won!"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
}

func TestRunSessionShorterThanOneTick(t *testing.T) {
	nodes := writeFile(t, "nodes.txt", "10.0.0.1\n10.0.0.2\n")

	// 0.01 minutes is 600ms, under the default one second tick.
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--time", "0.01", "--log-level", "error", nodes}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0; stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "team won!") {
		t.Errorf("stdout missing the winner:\n%s", stdout.String())
	}
}

func TestRunCancelledStillReportsWinner(t *testing.T) {
	nodes := writeFile(t, "nodes.txt", "10.0.0.1\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"--config", fastConfig(t), "--time", "10", nodes}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, want 0; stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "team won!") {
		t.Errorf("cancelled session should still announce a winner:\n%s", stdout.String())
	}
}

func TestRunConfigErrors(t *testing.T) {
	nodes := writeFile(t, "nodes.txt", "10.0.0.1\n")
	empty := writeFile(t, "empty.txt", "# nothing here\n")
	dup := writeFile(t, "dup.txt", "10.0.0.1\n10.0.0.1\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no nodefile", []string{}},
		{"two nodefiles", []string{nodes, nodes}},
		{"zero time", []string{"--time", "0", nodes}},
		{"negative time", []string{"--time", "-1", nodes}},
		{"NaN time", []string{"--time", "NaN", nodes}},
		{"infinite time", []string{"--time", "+Inf", nodes}},
		{"negative infinite time", []string{"--time", "-Inf", nodes}},
		{"unknown mode", []string{"--mode", "carrier-pigeon", nodes}},
		{"bad listen", []string{"--listen", "nope", nodes}},
		{"missing nodefile", []string{filepath.Join(t.TempDir(), "missing.txt")}},
		{"empty nodefile", []string{empty}},
		{"duplicate nodes", []string{dup}},
		{"bad config", []string{"--config", writeFile(t, "bad.yaml", "session: [\n"), nodes}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("run(%v) = %d, want 1", tt.args, code)
			}
			if strings.Contains(stdout.String(), "team won!") {
				t.Error("no session should run on a configuration error")
			}
		})
	}
}

func TestApplyListenEnablesServer(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags([]string{"--listen", "0.0.0.0:9000", "nodes.txt"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := o.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if !cfg.Server.Enabled || cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v, want enabled on 0.0.0.0:9000", cfg.Server)
	}
}

func TestApplyTimeConvertsMinutes(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags([]string{"--time", "1.5", "nodes.txt"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := o.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Session.Duration != 90*time.Second {
		t.Errorf("duration = %v, want 1m30s", cfg.Session.Duration)
	}
}
