package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"mmt/internal/cli"
)

const legacyMeta = `<?xml version="1.0" encoding="UTF-8"?>
<save>
    <version major="4" minor="0" revision="9" build="328"/>
    <region id="Config">
        <node id="root">
            <children>
                <node id="ModuleInfo">
                    <attribute id="Name" type="LSString" value="MyMod"/>
                    <attribute id="Version" type="int32" value="285343747"/>
                </node>
            </children>
        </node>
    </region>
</save>
`

const metaPath = "ws/Mods/MyMod/meta.lsx"

func Test_Select_Upgrades_And_Remembers_Workspace(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(metaPath, legacyMeta)

	workspace := filepath.Join(c.Dir, "ws")

	stdout := c.MustRun("select", "ws")

	cli.AssertContains(t, stdout, "workspace="+workspace)
	cli.AssertContains(t, stdout, "version=1.1.2.3")
	cli.AssertContains(t, stdout, "version64=36169538802286595")

	meta := c.ReadFile(metaPath)
	cli.AssertContains(t, meta, `id="Version64"`)
	cli.AssertContains(t, meta, `type="int64"`)
	cli.AssertContains(t, meta, `value="36169538802286595"`)
	cli.AssertNotContains(t, meta, `type="int32"`)

	settings, err := os.ReadFile(c.SettingsFile())
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}

	cli.AssertContains(t, string(settings), workspace)

	// The stored workspace is used when no directory is given.
	stdout = c.MustRun("version")

	cli.AssertContains(t, stdout, "workspace="+workspace)
	cli.AssertContains(t, stdout, "rewritten=0")
	cli.AssertContains(t, stdout, "version=1.1.2.3")
}

func Test_Select_Workspace_Without_Mods(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if err := os.MkdirAll(filepath.Join(c.Dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	stdout := c.MustRun("select", "empty")

	cli.AssertContains(t, stdout, "version=(none)")
}

func Test_Select_Missing_Directory_Warns(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("select", "missing")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stdout, "version=(none)")
	cli.AssertContains(t, stderr, "warning: not a directory")

	if _, err := os.Stat(c.SettingsFile()); !os.IsNotExist(err) {
		t.Errorf("settings file should not be written, stat err=%v", err)
	}
}

func Test_Select_Argument_Errors(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, exitCode := c.Run("select")
	if exitCode != 1 {
		t.Errorf("exitCode=%d, want=1", exitCode)
	}

	cli.AssertContains(t, stderr, "wrong number of arguments")

	_, stderr, exitCode = c.Run("select", "a", "b")
	if exitCode != 1 {
		t.Errorf("exitCode=%d, want=1", exitCode)
	}

	cli.AssertContains(t, stderr, "wrong number of arguments")
}

func Test_Select_Malformed_Meta_Fails(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(metaPath, `<save id=unquoted></save>`)

	stderr := c.MustFail("select", "ws")

	cli.AssertContains(t, stderr, "malformed lsx document")
}
