package lsx_test

import (
	"testing"

	"mmt/internal/fs"
	"mmt/internal/lsx"
	"mmt/internal/version"
)

func Test_Lookup_Under_Faults_Leaves_Original_Or_Upgraded_File(t *testing.T) {
	t.Parallel()

	original := metaDoc(moduleInfo(`<attribute id="Version" type="int32" value="285343747"/>`))

	clean := newMemWorkspace(t, map[string]string{"A/meta.lsx": original})
	if _, err := lsx.New(clean, lsx.Options{}).UpgradeVersionField(metaPath("A")); err != nil {
		t.Fatalf("clean upgrade: %v", err)
	}

	upgraded, err := clean.ReadFile(metaPath("A"))
	if err != nil {
		t.Fatalf("read upgraded: %v", err)
	}

	config := fs.ChaosConfig{
		ReadFailRate:    0.3,
		WriteFailRate:   0.3,
		ReadDirFailRate: 0.2,
		StatFailRate:    0.2,
		LockFailRate:    0.2,
	}

	var failures, successes int

	for seed := range int64(50) {
		mem := newMemWorkspace(t, map[string]string{"A/meta.lsx": original})
		chaos := fs.NewChaos(mem, seed, config)
		chaos.SetMode(fs.ChaosModeInject)

		res, err := lsx.New(chaos, lsx.Options{}).Lookup(workDir)

		got, readErr := mem.ReadFile(metaPath("A"))
		if readErr != nil {
			t.Fatalf("seed %d: read back: %v", seed, readErr)
		}

		switch {
		case err != nil:
			failures++

			if !fs.IsInjected(err) {
				t.Fatalf("seed %d: err=%v, want only injected faults", seed, err)
			}

			if string(got) != original {
				t.Fatalf("seed %d: failed lookup changed the file:\n%s", seed, got)
			}
		case res.Found:
			successes++

			if string(got) != string(upgraded) {
				t.Fatalf("seed %d: file differs from a clean upgrade:\n%s", seed, got)
			}

			if want := version.FromLegacy(285343747); res.Version != want {
				t.Fatalf("seed %d: version=%d, want %d", seed, res.Version, want)
			}
		default:
			t.Fatalf("seed %d: unexpected miss %+v", seed, res)
		}
	}

	if failures == 0 || successes == 0 {
		t.Fatalf("failures=%d successes=%d, want both", failures, successes)
	}
}

func Test_UpgradeVersionField_Read_Only_File(t *testing.T) {
	t.Parallel()

	original := metaDoc(moduleInfo(`<attribute id="Version" type="int32" value="5"/>`))
	mem := newMemWorkspace(t, map[string]string{"A/meta.lsx": original})

	chaos := fs.NewChaos(mem, 1, fs.ChaosConfig{})
	chaos.SetMode(fs.ChaosModeStickyOnly)
	chaos.SetPathState(metaPath("A"), fs.PathReadOnly)

	_, err := lsx.New(chaos, lsx.Options{}).UpgradeVersionField(metaPath("A"))
	if !fs.IsInjected(err) {
		t.Fatalf("err=%v, want injected read-only fault", err)
	}

	got, _ := mem.ReadFile(metaPath("A"))
	if string(got) != original {
		t.Fatalf("file changed:\n%s", got)
	}
}
