package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/triplclust/internal/triplclust"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the JSON form of the clustering parameters. Every field is
// optional; omitted fields fall back to the engine defaults. Lengths are
// strings so that they can be given relative to dnn, e.g. "0.3dnn".
type TuningConfig struct {
	// Smoothing and triplet generation
	SmoothingRadius *string  `json:"smoothing_radius,omitempty"` // r; "0" disables smoothing
	Neighbours      *int     `json:"neighbours,omitempty"`       // k
	MaxTriplets     *int     `json:"max_triplets,omitempty"`     // n
	MaxAngleCos     *float64 `json:"max_angle_cos,omitempty"`    // a, given as 1 - cos(angle)

	// Hierarchical clustering
	Scale         *string  `json:"scale,omitempty"`          // s
	Threshold     *float64 `json:"threshold,omitempty"`      // t
	AutoThreshold *bool    `json:"auto_threshold,omitempty"` // tauto overrides threshold
	Linkage       *string  `json:"linkage,omitempty"`
	LinkRadius    *string  `json:"link_radius,omitempty"` // empty picks a default

	// Refinement
	MaxGap  *string `json:"max_gap,omitempty"` // dmax; empty or "none" disables gap splitting
	MinSize *int    `json:"min_size,omitempty"` // m

	// Execution
	Workers   *int `json:"workers,omitempty"`
	Verbosity *int `json:"verbosity,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a config holding the engine defaults
// explicitly, as written to DefaultConfigPath.
func DefaultTuningConfig() *TuningConfig {
	p := triplclust.DefaultParams()
	return &TuningConfig{
		SmoothingRadius: ptrString(p.Radius.String()),
		Neighbours:      ptrInt(p.Neighbours),
		MaxTriplets:     ptrInt(p.MaxTriplets),
		MaxAngleCos:     ptrFloat64(triplclust.DefaultMaxAngleCos),
		Scale:           ptrString(p.Scale.String()),
		Threshold:       ptrFloat64(p.Threshold),
		AutoThreshold:   ptrBool(p.AutoThreshold),
		Linkage:         ptrString(p.Linkage),
		MaxGap:          ptrString("none"),
		MinSize:         ptrInt(p.MinSize),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/triplclust/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. It only checks
// fields that are set; ToParams validates the combined result.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*string{
		"smoothing_radius": c.SmoothingRadius,
		"scale":            c.Scale,
		"link_radius":      c.LinkRadius,
	} {
		if v == nil || *v == "" {
			continue
		}
		l, err := triplclust.ParseLength(*v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if l.Value < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	if c.MaxGap != nil && !gapDisabled(*c.MaxGap) {
		l, err := triplclust.ParseLength(*c.MaxGap)
		if err != nil {
			return fmt.Errorf("invalid max_gap: %w", err)
		}
		if !(l.Value > 0) {
			return fmt.Errorf("max_gap must be positive, got %s", *c.MaxGap)
		}
	}

	if c.MaxAngleCos != nil {
		if !(*c.MaxAngleCos > 0 && *c.MaxAngleCos <= 2) {
			return fmt.Errorf("max_angle_cos must be in (0, 2], got %f", *c.MaxAngleCos)
		}
	}

	if c.Neighbours != nil && *c.Neighbours < 2 {
		return fmt.Errorf("neighbours must be at least 2, got %d", *c.Neighbours)
	}
	if c.MaxTriplets != nil && *c.MaxTriplets < 1 {
		return fmt.Errorf("max_triplets must be at least 1, got %d", *c.MaxTriplets)
	}
	if c.MinSize != nil && *c.MinSize < 1 {
		return fmt.Errorf("min_size must be at least 1, got %d", *c.MinSize)
	}
	if c.Threshold != nil && !(*c.Threshold > 0) {
		return fmt.Errorf("threshold must be positive, got %f", *c.Threshold)
	}

	if c.Linkage != nil {
		if _, err := triplclust.LinkageByName(*c.Linkage); err != nil {
			return err
		}
	}

	return nil
}

func gapDisabled(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "none")
}

// GetNeighbours returns the neighbours value or the default.
func (c *TuningConfig) GetNeighbours() int {
	if c.Neighbours == nil {
		return triplclust.DefaultNeighbours
	}
	return *c.Neighbours
}

// GetMaxTriplets returns the max_triplets value or the default.
func (c *TuningConfig) GetMaxTriplets() int {
	if c.MaxTriplets == nil {
		return triplclust.DefaultMaxTriplets
	}
	return *c.MaxTriplets
}

// GetMaxAngle returns the angular tolerance in radians.
func (c *TuningConfig) GetMaxAngle() float64 {
	if c.MaxAngleCos == nil {
		return triplclust.DefaultMaxAngle
	}
	return triplclust.MaxAngleFromCos(*c.MaxAngleCos)
}

// GetAutoThreshold returns the auto_threshold value or the default. An
// explicit threshold without auto_threshold turns the automatic cut off.
func (c *TuningConfig) GetAutoThreshold() bool {
	if c.AutoThreshold != nil {
		return *c.AutoThreshold
	}
	return c.Threshold == nil
}

// GetThreshold returns the threshold value or the default.
func (c *TuningConfig) GetThreshold() float64 {
	if c.Threshold == nil {
		return triplclust.DefaultThreshold
	}
	return *c.Threshold
}

// GetMinSize returns the min_size value or the default.
func (c *TuningConfig) GetMinSize() int {
	if c.MinSize == nil {
		return triplclust.DefaultMinSize
	}
	return *c.MinSize
}

// GetLinkage returns the linkage name or the default.
func (c *TuningConfig) GetLinkage() string {
	if c.Linkage == nil || *c.Linkage == "" {
		return triplclust.LinkageSingle
	}
	return strings.ToLower(strings.TrimSpace(*c.Linkage))
}

// GetWorkers returns the worker count; 0 means one per CPU.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetVerbosity returns the verbosity level.
func (c *TuningConfig) GetVerbosity() int {
	if c.Verbosity == nil {
		return 0
	}
	return *c.Verbosity
}

// ToParams converts the config into engine parameters, filling defaults for
// every omitted field, and validates the result.
func (c *TuningConfig) ToParams() (triplclust.Params, error) {
	p := triplclust.DefaultParams()

	var err error
	if p.Radius, err = lengthOr(c.SmoothingRadius, p.Radius); err != nil {
		return p, fmt.Errorf("smoothing_radius: %w", err)
	}
	if p.Scale, err = lengthOr(c.Scale, p.Scale); err != nil {
		return p, fmt.Errorf("scale: %w", err)
	}
	if p.LinkRadius, err = lengthOr(c.LinkRadius, p.LinkRadius); err != nil {
		return p, fmt.Errorf("link_radius: %w", err)
	}
	if c.MaxGap != nil && !gapDisabled(*c.MaxGap) {
		if p.MaxGap, err = triplclust.ParseLength(*c.MaxGap); err != nil {
			return p, fmt.Errorf("max_gap: %w", err)
		}
		p.UseMaxGap = true
	}

	p.Neighbours = c.GetNeighbours()
	p.MaxTriplets = c.GetMaxTriplets()
	p.MaxAngle = c.GetMaxAngle()
	p.Threshold = c.GetThreshold()
	p.AutoThreshold = c.GetAutoThreshold()
	p.MinSize = c.GetMinSize()
	p.Linkage = c.GetLinkage()
	p.Workers = c.GetWorkers()
	p.Verbosity = c.GetVerbosity()

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func lengthOr(s *string, fallback triplclust.Length) (triplclust.Length, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback, nil
	}
	return triplclust.ParseLength(*s)
}
