package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/active-agent/internal/agent"
	"github.com/danielpatrickdp/active-agent/internal/gridworld"
	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/perception"
	"github.com/danielpatrickdp/active-agent/internal/planning"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string          `json:"description"`
	Grid            FixtureGrid     `json:"grid"`
	Config          FixtureConfig   `json:"config"`
	Observations    [][][]int       `json:"observations"`     // [step][row][modality]
	ExpectedActions [][][]int       `json:"expected_actions"` // [step][row][factor], optional
}

// FixtureGrid describes the gridworld the fixture was recorded against.
type FixtureGrid struct {
	Size  int         `json:"size"`
	Batch int         `json:"batch"`
	Start FixtureCell `json:"start"`
	Goal  FixtureCell `json:"goal"`
}

// FixtureCell mirrors gridworld.Cell with JSON tags.
type FixtureCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// FixtureConfig mirrors agent.Config with JSON tags.
type FixtureConfig struct {
	Horizon   int     `json:"horizon"`
	Selection string  `json:"selection"`
	Seeds     []int64 `json:"seeds"`

	MaxSweeps      int     `json:"max_sweeps"`
	ConvergenceTol float64 `json:"convergence_tol"`

	UseUtility         bool    `json:"use_utility"`
	UseStatesInfoGain  bool    `json:"use_states_info_gain"`
	UseParamInfoGain   bool    `json:"use_param_info_gain"`
	UseInductive       bool    `json:"use_inductive"`
	UtilityWeight      float64 `json:"utility_weight"`
	StateInfoWeight    float64 `json:"state_info_weight"`
	ParamInfoWeight    float64 `json:"param_info_weight"`
	InductiveWeight    float64 `json:"inductive_weight"`
	InductiveDepth     int     `json:"inductive_depth"`
	InductiveThreshold float64 `json:"inductive_threshold"`
	Temperature        float64 `json:"temperature"`
}

// Meta is the rollout metadata persisted alongside stored rollouts so a
// replay can rebuild the exact model and agent configuration later.
type Meta struct {
	Grid   FixtureGrid   `json:"grid"`
	Config FixtureConfig `json:"config"`
}

// Encode serializes the metadata for storage.
func (m Meta) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode rollout meta: %w", err)
	}
	return string(data), nil
}

// DecodeMeta parses metadata previously produced by Encode.
func DecodeMeta(s string) (Meta, error) {
	var m Meta
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return Meta{}, fmt.Errorf("decode rollout meta: %w", err)
	}
	return m, nil
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// BuildModel constructs the generative model the fixture was recorded
// against.
func (f *Fixture) BuildModel() (*model.GenerativeModel, error) {
	batch := f.Grid.Batch
	if batch <= 0 {
		batch = 1
	}
	return gridworld.BuildModel(
		f.Grid.Size, batch,
		gridworld.Cell{Row: f.Grid.Start.Row, Col: f.Grid.Start.Col},
		gridworld.Cell{Row: f.Grid.Goal.Row, Col: f.Grid.Goal.Col},
	)
}

// ToAgentConfig converts the fixture configuration to a domain agent.Config.
func (fc *FixtureConfig) ToAgentConfig() agent.Config {
	cfg := agent.DefaultConfig()
	if fc.Horizon > 0 {
		cfg.Horizon = fc.Horizon
	}
	if fc.Selection != "" {
		cfg.Selection = fc.Selection
	}
	cfg.Seeds = fc.Seeds
	if fc.MaxSweeps > 0 {
		cfg.Perception = perception.Config{MaxSweeps: fc.MaxSweeps, Tol: fc.ConvergenceTol}
	}
	cfg.Planning = planning.Config{
		UseUtility:         fc.UseUtility,
		UseStatesInfoGain:  fc.UseStatesInfoGain,
		UseParamInfoGain:   fc.UseParamInfoGain,
		UseInductive:       fc.UseInductive,
		UtilityWeight:      orOne(fc.UtilityWeight),
		StateInfoWeight:    orOne(fc.StateInfoWeight),
		ParamInfoWeight:    orOne(fc.ParamInfoWeight),
		InductiveWeight:    orOne(fc.InductiveWeight),
		InductiveDepth:     fc.InductiveDepth,
		InductiveThreshold: fc.InductiveThreshold,
		Temperature:        orOne(fc.Temperature),
	}
	return cfg
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// #endregion fixture-loader
