// Package config loads agent configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/active-agent/internal/action"
	"github.com/danielpatrickdp/active-agent/internal/agent"
	"github.com/danielpatrickdp/active-agent/internal/perception"
	"github.com/danielpatrickdp/active-agent/internal/planning"
)

// #region file-config

// FileConfig is the YAML surface for one agent. Missing fields keep the
// defaults from Default().
type FileConfig struct {
	Horizon   int     `yaml:"horizon"`
	Selection string  `yaml:"selection"`
	Seeds     []int64 `yaml:"seeds"`

	MaxSweeps      int     `yaml:"max_sweeps"`
	ConvergenceTol float64 `yaml:"convergence_tol"`

	UseUtility        bool `yaml:"use_utility"`
	UseStatesInfoGain bool `yaml:"use_states_info_gain"`
	UseParamInfoGain  bool `yaml:"use_param_info_gain"`
	UseInductive      bool `yaml:"use_inductive"`

	UtilityWeight   float64 `yaml:"utility_weight"`
	StateInfoWeight float64 `yaml:"state_info_weight"`
	ParamInfoWeight float64 `yaml:"param_info_weight"`
	InductiveWeight float64 `yaml:"inductive_weight"`

	InductiveDepth     int     `yaml:"inductive_depth"`
	InductiveThreshold float64 `yaml:"inductive_threshold"`
	Temperature        float64 `yaml:"temperature"`

	DBPath string `yaml:"db_path"`
}

// Default returns the standard one-step configuration.
func Default() FileConfig {
	return FileConfig{
		Horizon:           1,
		Selection:         action.SelectStochastic,
		MaxSweeps:         16,
		ConvergenceTol:    1e-4,
		UseUtility:        true,
		UseStatesInfoGain: true,
		UtilityWeight:     1,
		StateInfoWeight:   1,
		ParamInfoWeight:   1,
		InductiveWeight:   1,
		Temperature:       1,
	}
}

// #endregion file-config

// #region load

// Load reads a YAML file over the defaults.
func Load(path string) (FileConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Horizon <= 0 {
		return FileConfig{}, fmt.Errorf("config %s: horizon must be positive, got %d", path, cfg.Horizon)
	}
	if cfg.InductiveDepth < 0 {
		return FileConfig{}, fmt.Errorf("config %s: inductive_depth must be non-negative, got %d", path, cfg.InductiveDepth)
	}
	if cfg.InductiveThreshold < 0 || cfg.InductiveThreshold >= 1 {
		return FileConfig{}, fmt.Errorf("config %s: inductive_threshold must be in [0,1), got %g", path, cfg.InductiveThreshold)
	}
	return cfg, nil
}

// AgentConfig converts the file surface to a domain agent.Config.
func (c FileConfig) AgentConfig() agent.Config {
	return agent.Config{
		Horizon:    c.Horizon,
		Selection:  c.Selection,
		Seeds:      c.Seeds,
		Perception: perception.Config{MaxSweeps: c.MaxSweeps, Tol: c.ConvergenceTol},
		Planning: planning.Config{
			UseUtility:         c.UseUtility,
			UseStatesInfoGain:  c.UseStatesInfoGain,
			UseParamInfoGain:   c.UseParamInfoGain,
			UseInductive:       c.UseInductive,
			UtilityWeight:      c.UtilityWeight,
			StateInfoWeight:    c.StateInfoWeight,
			ParamInfoWeight:    c.ParamInfoWeight,
			InductiveWeight:    c.InductiveWeight,
			InductiveDepth:     c.InductiveDepth,
			InductiveThreshold: c.InductiveThreshold,
			Temperature:        c.Temperature,
		},
	}
}

// #endregion load
