package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/predict"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "microdomains.toml"

// Source is one labelled FASTA input.
type Source struct {
	Label string `toml:"label" json:"label"`
	Path  string `toml:"path" json:"path"`
}

// Predict holds settings for the structure-prediction client.
type Predict struct {
	SubmitURL    string   `toml:"submit_url" json:"submit_url"`
	StatusURL    string   `toml:"status_url" json:"status_url"`
	APIKey       string   `toml:"api_key" json:"api_key"`
	PollInterval Duration `toml:"poll_interval" json:"poll_interval"`
	MinLength    int      `toml:"min_length" json:"min_length"`
	OutDir       string   `toml:"out_dir" json:"out_dir"`
	JobsDB       string   `toml:"jobs_db" json:"jobs_db"`
}

// Config is the microdomains configuration, read from microdomains.toml or
// a .json file. Relative paths are resolved against BaseDir.
type Config struct {
	// BaseDir anchors every relative path below.
	BaseDir         string   `toml:"base_dir" json:"base_dir"`
	AnnotationPath  string   `toml:"annotation_path" json:"annotation_path"`
	AnnotationSheet string   `toml:"annotation_sheet" json:"annotation_sheet"`
	OutputDir       string   `toml:"output_dir" json:"output_dir"`
	Sources         []Source `toml:"sources" json:"sources"`
	ShortThreshold  int      `toml:"short_threshold" json:"short_threshold"`
	LineWidth       int      `toml:"line_width" json:"line_width"`
	LogFile         string   `toml:"log_file" json:"log_file"`
	LogLevel        string   `toml:"log_level" json:"log_level"`
	Predict         Predict  `toml:"predict" json:"predict"`
}

// Duration decodes "8s" style strings from TOML and JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is present. The
// source labels and file names follow the layout of the secretome dataset.
func Default() *Config {
	return &Config{
		BaseDir:        ".",
		AnnotationPath: "BD_completed.xlsx",
		OutputDir:      "outputs",
		Sources: []Source{
			{Label: "TL_secreted", Path: "TL_secreted.fasta"},
			{Label: "PL_secreted", Path: "PL_secreted.fasta"},
			{Label: "Homology_experimental", Path: "Homology_experimental.fasta"},
			{Label: "Homology_any", Path: "Homology_any.fasta"},
		},
		ShortThreshold: 100,
		LineWidth:      70,
		LogLevel:       "info",
		Predict: Predict{
			SubmitURL:    predict.DefaultSubmitURL,
			StatusURL:    predict.DefaultStatusURL,
			PollInterval: Duration{predict.DefaultPollInterval},
			MinLength:    predict.DefaultMinLength,
			OutDir:       "predicciones",
		},
	}
}

// LoadConfig loads a config from path. If path is empty, ./microdomains.toml
// is used. A missing file is not an error: defaults are returned. Files
// ending in .json are decoded as JSON, anything else as TOML.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	c := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, c)
	} else {
		err = toml.Unmarshal(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.BaseDir == "" {
		c.BaseDir = d.BaseDir
	}
	if c.AnnotationPath == "" {
		c.AnnotationPath = d.AnnotationPath
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if len(c.Sources) == 0 {
		c.Sources = d.Sources
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ShortThreshold <= 0 {
		c.ShortThreshold = d.ShortThreshold
	}
	if c.LineWidth <= 0 {
		c.LineWidth = d.LineWidth
	}
	if c.Predict.SubmitURL == "" {
		c.Predict.SubmitURL = d.Predict.SubmitURL
	}
	if c.Predict.StatusURL == "" {
		c.Predict.StatusURL = d.Predict.StatusURL
	}
	if c.Predict.PollInterval.Duration <= 0 {
		c.Predict.PollInterval = d.Predict.PollInterval
	}
	if c.Predict.MinLength <= 0 {
		c.Predict.MinLength = d.Predict.MinLength
	}
	if c.Predict.OutDir == "" {
		c.Predict.OutDir = d.Predict.OutDir
	}
}

// Resolve joins p onto BaseDir unless p is already absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// ResolvedSources returns Sources with their paths resolved against BaseDir.
func (c *Config) ResolvedSources() []Source {
	out := make([]Source, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = Source{Label: s.Label, Path: c.Resolve(s.Path)}
	}
	return out
}

// Validate reports configuration that cannot drive a pipeline run.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config: no sequence sources configured")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Label == "" || s.Path == "" {
			return fmt.Errorf("config: source %+v needs both label and path", s)
		}
		if seen[s.Label] {
			return fmt.Errorf("config: duplicate source label %q", s.Label)
		}
		seen[s.Label] = true
	}
	if c.AnnotationPath == "" {
		return errors.New("config: annotation_path is required")
	}
	return nil
}
