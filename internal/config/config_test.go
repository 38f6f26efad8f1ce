package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/active-agent/internal/action"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Horizon != 1 || cfg.Selection != action.SelectStochastic {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.UseUtility || !cfg.UseStatesInfoGain {
		t.Fatal("risk and epistemic terms should default on")
	}
	if cfg.UseParamInfoGain || cfg.UseInductive {
		t.Fatal("novelty and inductive terms should default off")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
horizon: 3
selection: deterministic
use_inductive: true
inductive_depth: 7
inductive_threshold: 0.1
temperature: 0.5
seeds: [11, 12]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Horizon != 3 || cfg.Selection != action.SelectDeterministic {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.UseInductive || cfg.InductiveDepth != 7 || cfg.InductiveThreshold != 0.1 {
		t.Fatalf("inductive fields not loaded: %+v", cfg)
	}
	if cfg.Temperature != 0.5 {
		t.Fatalf("temperature not loaded: %g", cfg.Temperature)
	}
	if len(cfg.Seeds) != 2 || cfg.Seeds[1] != 12 {
		t.Fatalf("seeds not loaded: %v", cfg.Seeds)
	}
	// Untouched fields keep the defaults.
	if cfg.MaxSweeps != 16 || !cfg.UseUtility {
		t.Fatalf("defaults clobbered: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero horizon":        "horizon: 0",
		"negative depth":      "inductive_depth: -1",
		"threshold too large": "inductive_threshold: 1.0",
		"not yaml":            ": notayaml [",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAgentConfigConversion(t *testing.T) {
	cfg := Default()
	cfg.Horizon = 2
	cfg.UseInductive = true
	cfg.InductiveDepth = 5
	ac := cfg.AgentConfig()
	if ac.Horizon != 2 {
		t.Fatalf("horizon not carried: %d", ac.Horizon)
	}
	if ac.Perception.MaxSweeps != 16 || ac.Perception.Tol != 1e-4 {
		t.Fatalf("perception config not carried: %+v", ac.Perception)
	}
	if !ac.Planning.UseInductive || ac.Planning.InductiveDepth != 5 {
		t.Fatalf("planning config not carried: %+v", ac.Planning)
	}
}
