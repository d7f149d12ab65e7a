package cli_test

import (
	"path/filepath"
	"testing"

	"mmt/internal/cli"
)

func Test_Print_Config_Defaults(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "mods_dir=Mods")
	cli.AssertContains(t, stdout, "meta_file=meta.lsx")
	cli.AssertContains(t, stdout, "pack_dir="+c.Dir)
	cli.AssertContains(t, stdout, "pack_workers=2")
	cli.AssertContains(t, stdout, "settings_file="+c.SettingsFile())
	cli.AssertContains(t, stdout, "log_level=warn")
	cli.AssertContains(t, stdout, "(defaults only)")
}

func Test_Print_Config_Layers(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	global := filepath.Join(c.Env["XDG_CONFIG_HOME"], "mmt", "config.json")

	c.WriteFile(".mmt.json", `{"pack_dir": "dist", /* two at once */ "pack_workers": 4}`)

	stdout := c.MustRun("--log-format=json", "print-config")

	cli.AssertContains(t, stdout, "pack_dir="+filepath.Join(c.Dir, "dist"))
	cli.AssertContains(t, stdout, "pack_workers=4")
	cli.AssertContains(t, stdout, "log_format=json")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".mmt.json"))
	cli.AssertNotContains(t, stdout, "global_config="+global)
}

func Test_Print_Config_JSON(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config", "--json")

	cli.AssertContains(t, stdout, `"mods_dir": "Mods"`)
	cli.AssertContains(t, stdout, `"meta_file": "meta.lsx"`)
	cli.AssertNotContains(t, stdout, "effective_cwd")
}
