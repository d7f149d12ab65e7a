package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mmt/internal/cli"
)

func Test_Status_Without_Workspace(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("status")

	want := `pack_allowed=true
busy=false
box_color=LightBlue
description_color=Black
instructions=Drop a mod workspace folder here to pack it
can_rebuild=false
workspace=
version=(none)`

	if stdout != want {
		t.Errorf("stdout mismatch\ngot:\n%s\nwant:\n%s", stdout, want)
	}
}

func Test_Status_Restores_Selected_Workspace(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(metaPath, legacyMeta)
	c.MustRun("select", "ws")

	stdout := c.MustRun("status")

	cli.AssertContains(t, stdout, "can_rebuild=true")
	cli.AssertContains(t, stdout, "workspace="+filepath.Join(c.Dir, "ws"))
	cli.AssertContains(t, stdout, "version=1.1.2.3")
}

func Test_Status_Forgets_Removed_Workspace(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(metaPath, legacyMeta)
	c.MustRun("select", "ws")

	if err := os.RemoveAll(filepath.Join(c.Dir, "ws")); err != nil {
		t.Fatal(err)
	}

	stdout := c.MustRun("status")
	cli.AssertContains(t, stdout, "can_rebuild=false")

	settings, err := os.ReadFile(c.SettingsFile())
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}

	cli.AssertNotContains(t, string(settings), "ws")

	stderr := c.MustFail("version")
	cli.AssertContains(t, stderr, "no workspace selected")
}

func Test_Status_JSON_Includes_Version_Only_When_Known(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	var empty map[string]any
	if err := json.Unmarshal([]byte(c.MustRun("status", "--json")), &empty); err != nil {
		t.Fatalf("status --json is not JSON: %v", err)
	}

	if _, ok := empty["version64"]; ok {
		t.Errorf("version64 should be omitted without a workspace: %v", empty)
	}

	if got, want := empty["box_color"], "LightBlue"; got != want {
		t.Errorf("box_color=%v, want=%v", got, want)
	}

	c.WriteFile(metaPath, legacyMeta)
	c.MustRun("select", "ws")

	stdout := c.MustRun("status", "--json")

	cli.AssertContains(t, stdout, `"workspace": "`+filepath.Join(c.Dir, "ws")+`"`)
	cli.AssertContains(t, stdout, `"version": "1.1.2.3"`)
	cli.AssertContains(t, stdout, `"version64": 36169538802286595`)
	cli.AssertNotContains(t, stdout, "pack_allowed=")
}
