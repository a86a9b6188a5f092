package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/otherjamesbrown/confab/cmd"
)

func TestRootCommandWiring(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	if rootCmd.Use != "confab" {
		t.Errorf("Unexpected Use: %s", rootCmd.Use)
	}

	want := map[string]bool{"serve": false, "version": false, "config": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered on rootCmd", name)
		}
	}
}

func TestVersionCommandOutput(t *testing.T) {
	versionCmd := cmd.NewVersionCommand()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)

	if err := versionCmd.RunE(versionCmd, []string{}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "confab") {
		t.Errorf("version output does not contain 'confab'. Output:\n%s", output)
	}
	if !strings.Contains(output, "go:") {
		t.Errorf("version output does not contain 'go:'. Output:\n%s", output)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	versionCmd := cmd.NewVersionCommand()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	if err := versionCmd.Flags().Set("json", "true"); err != nil {
		t.Fatalf("setting --json flag: %v", err)
	}

	if err := versionCmd.RunE(versionCmd, []string{}); err != nil {
		t.Fatalf("version --json failed: %v", err)
	}

	var info map[string]any
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("version --json produced invalid JSON: %v\nOutput:\n%s", err, buf.String())
	}
	if info["service_name"] != "confab" {
		t.Errorf("Unexpected service_name: %v", info["service_name"])
	}
}

func TestConfigPathCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFAB_CONFIG_DIR", dir)

	configCmd := cmd.NewConfigCommand()
	configCmd.SetArgs([]string{"path"})

	var buf bytes.Buffer
	configCmd.SetOut(&buf)

	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config path failed: %v", err)
	}

	got := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(got, dir) {
		t.Errorf("config path %q not under CONFAB_CONFIG_DIR %q", got, dir)
	}
}
