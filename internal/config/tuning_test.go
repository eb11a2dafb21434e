package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/triplclust/internal/triplclust"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.SmoothingRadius == nil || *cfg.SmoothingRadius != "2dnn" {
		t.Errorf("Expected SmoothingRadius '2dnn', got %v", cfg.SmoothingRadius)
	}
	if cfg.Scale == nil || *cfg.Scale != "0.3dnn" {
		t.Errorf("Expected Scale '0.3dnn', got %v", cfg.Scale)
	}
	if cfg.Neighbours == nil || *cfg.Neighbours != 19 {
		t.Errorf("Expected Neighbours 19, got %v", cfg.Neighbours)
	}

	params, err := cfg.ToParams()
	if err != nil {
		t.Fatalf("ToParams() error = %v", err)
	}
	want := triplclust.DefaultParams()
	if params != want {
		t.Errorf("ToParams() = %+v, want %+v", params, want)
	}
}

func TestEmptyConfigMatchesDefaults(t *testing.T) {
	params, err := EmptyTuningConfig().ToParams()
	if err != nil {
		t.Fatalf("ToParams() error = %v", err)
	}
	if params != triplclust.DefaultParams() {
		t.Errorf("empty config gave %+v, want defaults", params)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, `{
  "smoothing_radius": "0",
  "neighbours": 8,
  "max_triplets": 3,
  "max_angle_cos": 0.01,
  "scale": "0.5",
  "threshold": 3.5,
  "linkage": "average",
  "max_gap": "2dnn",
  "min_size": 7,
  "workers": 2,
  "verbosity": 1
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p, err := cfg.ToParams()
	if err != nil {
		t.Fatalf("ToParams() error = %v", err)
	}

	if p.Radius != triplclust.Abs(0) {
		t.Errorf("Radius = %v, want 0", p.Radius)
	}
	if p.Neighbours != 8 || p.MaxTriplets != 3 || p.MinSize != 7 {
		t.Errorf("k/n/m = %d/%d/%d, want 8/3/7", p.Neighbours, p.MaxTriplets, p.MinSize)
	}
	if math.Abs(1-math.Cos(p.MaxAngle)-0.01) > 1e-12 {
		t.Errorf("MaxAngle = %f, want acos(0.99)", p.MaxAngle)
	}
	if p.Scale != triplclust.Abs(0.5) {
		t.Errorf("Scale = %v, want 0.5", p.Scale)
	}
	if p.AutoThreshold {
		t.Error("an explicit threshold should disable the automatic threshold")
	}
	if p.Threshold != 3.5 {
		t.Errorf("Threshold = %f, want 3.5", p.Threshold)
	}
	if p.Linkage != triplclust.LinkageAverage {
		t.Errorf("Linkage = %q, want average", p.Linkage)
	}
	if !p.UseMaxGap || p.MaxGap != triplclust.DNN(2) {
		t.Errorf("MaxGap = %v (enabled %v), want 2dnn", p.MaxGap, p.UseMaxGap)
	}
	if p.Workers != 2 || p.Verbosity != 1 {
		t.Errorf("workers/verbosity = %d/%d, want 2/1", p.Workers, p.Verbosity)
	}
}

func TestAutoThresholdOverridesThreshold(t *testing.T) {
	path := writeConfig(t, `{"threshold": 4, "auto_threshold": true}`)
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.GetAutoThreshold() {
		t.Error("auto_threshold true should win over threshold")
	}
	if cfg.GetThreshold() != 4 {
		t.Errorf("GetThreshold() = %f, want 4", cfg.GetThreshold())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	path := writeConfig(t, `{
  "neighbours": "many"
`)
	_, err := LoadTuningConfig(path)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultTuningConfig()},
		{name: "empty config is valid", cfg: EmptyTuningConfig()},
		{name: "bad length", cfg: &TuningConfig{Scale: ptrString("wide")}, wantErr: true},
		{name: "negative radius", cfg: &TuningConfig{SmoothingRadius: ptrString("-1")}, wantErr: true},
		{name: "zero max gap", cfg: &TuningConfig{MaxGap: ptrString("0")}, wantErr: true},
		{name: "max gap none", cfg: &TuningConfig{MaxGap: ptrString("None")}},
		{name: "angle out of range", cfg: &TuningConfig{MaxAngleCos: ptrFloat64(0)}, wantErr: true},
		{name: "too few neighbours", cfg: &TuningConfig{Neighbours: ptrInt(1)}, wantErr: true},
		{name: "no triplets", cfg: &TuningConfig{MaxTriplets: ptrInt(0)}, wantErr: true},
		{name: "min size zero", cfg: &TuningConfig{MinSize: ptrInt(0)}, wantErr: true},
		{name: "negative threshold", cfg: &TuningConfig{Threshold: ptrFloat64(-1)}, wantErr: true},
		{name: "unknown linkage", cfg: &TuningConfig{Linkage: ptrString("ward")}, wantErr: true},
		{name: "auto threshold flag", cfg: &TuningConfig{AutoThreshold: ptrBool(false), Threshold: ptrFloat64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	params, err := cfg.ToParams()
	if err != nil {
		t.Fatalf("defaults file does not convert: %v", err)
	}
	if params != triplclust.DefaultParams() {
		t.Errorf("defaults file gave %+v, want %+v", params, triplclust.DefaultParams())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}
