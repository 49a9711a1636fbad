package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/aurora/engine/scene"
)

// Config is the TOML application configuration.
type Config struct {
	LogLevel   string        `toml:"log_level"`
	ContentDir string        `toml:"content_dir"`
	Scene      SceneConfig   `toml:"scene"`
	Workers    WorkersConfig `toml:"workers"`
}

// SceneConfig selects the scene to load and its spatial index and
// boundary setup. Index settings here override the ones stored in
// the scene class when set.
type SceneConfig struct {
	Name          string   `toml:"name"`
	SpatialIndex  string   `toml:"spatial_index"`
	QuadMaxItems  int      `toml:"quadtree_max_items"`
	QuadMaxLevels int      `toml:"quadtree_max_levels"`
	GridRows      int      `toml:"grid_rows"`
	GridCols      int      `toml:"grid_cols"`
	BoundLeft     *float32 `toml:"bound_left"`
	BoundRight    *float32 `toml:"bound_right"`
	BoundTop      *float32 `toml:"bound_top"`
	BoundBottom   *float32 `toml:"bound_bottom"`
}

// WorkersConfig sizes the background job system.
type WorkersConfig struct {
	NumWorkers int `toml:"num_workers"`
	QueueSize  int `toml:"queue_size"`
}

func Default() *Config {
	return &Config{
		LogLevel:   "info",
		ContentDir: "content",
		Workers: WorkersConfig{
			NumWorkers: 2,
			QueueSize:  64,
		},
	}
}

// Load reads the TOML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// HasIndexOverride is true when the config overrides the spatial
// index stored in the scene class.
func (c *SceneConfig) HasIndexOverride() bool { return c.SpatialIndex != "" }

// IndexSetting translates the scene section into the scene class
// level index configuration. An empty spatial_index means no
// override.
func (c *SceneConfig) IndexSetting() (scene.IndexSetting, error) {
	switch c.SpatialIndex {
	case "":
		return scene.IndexSetting{}, nil
	case "disabled":
		return scene.IndexSetting{Kind: scene.IndexDisabled}, nil
	case "quadtree":
		return scene.IndexSetting{
			Kind: scene.IndexQuadTree,
			QuadTree: scene.QuadTreeArgs{
				MaxItems:  c.QuadMaxItems,
				MaxLevels: c.QuadMaxLevels,
			},
		}, nil
	case "densegrid":
		return scene.IndexSetting{
			Kind: scene.IndexDenseGrid,
			DenseGrid: scene.DenseGridArgs{
				NumRows: c.GridRows,
				NumCols: c.GridCols,
			},
		}, nil
	}
	return scene.IndexSetting{}, fmt.Errorf("unknown spatial index kind '%s'", c.SpatialIndex)
}

// Boundary translates the scene section into the scene kill planes.
func (c *SceneConfig) Boundary() scene.BoundarySetting {
	return scene.BoundarySetting{
		Left:   c.BoundLeft,
		Right:  c.BoundRight,
		Top:    c.BoundTop,
		Bottom: c.BoundBottom,
	}
}
