package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aryankumar/conveyor/internal/util"
)

func TestManager_Load(t *testing.T) {
	tests := []struct {
		name           string
		configContent  string
		wantErr        bool
		wantPresets    int
		wantCapacity   int
		wantPutTimeout time.Duration
	}{
		{
			name: "valid config with presets",
			configContent: `
defaultPreset: burst
presets:
  burst:
    description: short bursty run
    capacity: 5
    producers: 8
    consumers: 2
    labels:
      profile: stress
  steady:
    description: steady trickle
    producers: 1
    consumers: 1
    produceDelay: 50ms
defaults:
  capacity: 20
  putTimeout: 250ms
  outputFormat: json
`,
			wantErr:        false,
			wantPresets:    2,
			wantCapacity:   20,
			wantPutTimeout: 250 * time.Millisecond,
		},
		{
			name: "minimal config with defaults",
			configContent: `
presets:
  quick:
    items: 5
`,
			wantErr:        false,
			wantPresets:    1,
			wantCapacity:   10,                     // default
			wantPutTimeout: 500 * time.Millisecond, // default
		},
		{
			name:           "empty config",
			configContent:  "",
			wantErr:        false,
			wantPresets:    0,
			wantCapacity:   10,
			wantPutTimeout: 500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, ".conveyor.yaml")

			if tt.configContent != "" {
				if err := os.WriteFile(configPath, []byte(tt.configContent), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}
			}

			manager := NewManager(configPath)
			config, err := manager.Load()

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			// For empty config, we don't write a file, so Load() falls back
			// to defaults without error
			if err != nil && tt.configContent != "" {
				t.Fatalf("unexpected error: %v", err)
			}

			// GetConfig should always return a valid config object
			config = manager.GetConfig()
			if config == nil {
				t.Fatal("config is nil")
			}

			if len(config.Presets) != tt.wantPresets {
				t.Errorf("got %d presets, want %d", len(config.Presets), tt.wantPresets)
			}

			if config.Defaults.Capacity != tt.wantCapacity {
				t.Errorf("got capacity %d, want %d", config.Defaults.Capacity, tt.wantCapacity)
			}

			if config.Defaults.PutTimeout != tt.wantPutTimeout {
				t.Errorf("got put timeout %v, want %v", config.Defaults.PutTimeout, tt.wantPutTimeout)
			}
		})
	}
}

func TestManager_GetPreset(t *testing.T) {
	configContent := `
presets:
  burst:
    description: short bursty run
    producers: 8
    labels:
      profile: stress
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	manager := NewManager(configPath)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	tests := []struct {
		name          string
		presetName    string
		wantFound     bool
		wantProducers int
	}{
		{
			name:          "existing preset",
			presetName:    "burst",
			wantFound:     true,
			wantProducers: 8,
		},
		{
			name:       "non-existent preset",
			presetName: "non-existent",
			wantFound:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset, found := manager.GetPreset(tt.presetName)

			if found != tt.wantFound {
				t.Errorf("got found=%v, want %v", found, tt.wantFound)
			}

			if tt.wantFound {
				if preset.Producers != tt.wantProducers {
					t.Errorf("got producers %d, want %d", preset.Producers, tt.wantProducers)
				}
			}
		})
	}
}

func TestManager_SetPreset(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	manager := NewManager(configPath)
	_, _ = manager.Load() // Empty config is fine

	// Set a new preset
	newPreset := PresetConfig{
		Description:  "soak run",
		Capacity:     3,
		Producers:    2,
		Consumers:    4,
		Items:        100,
		ConsumeDelay: 10 * time.Millisecond,
		Labels: map[string]string{
			"profile": "soak",
		},
	}

	manager.SetPreset("soak", newPreset)

	// Verify it was set
	preset, found := manager.GetPreset("soak")
	if !found {
		t.Fatal("preset not found after setting")
	}

	if preset.Capacity != 3 {
		t.Errorf("got capacity %d, want 3", preset.Capacity)
	}

	if preset.ConsumeDelay != 10*time.Millisecond {
		t.Errorf("got consume delay %v, want 10ms", preset.ConsumeDelay)
	}
}

func TestManager_RemovePreset(t *testing.T) {
	configContent := `
defaultPreset: burst
presets:
  burst:
    producers: 8
  steady:
    producers: 1
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	manager := NewManager(configPath)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify preset exists
	if _, found := manager.GetPreset("burst"); !found {
		t.Fatal("burst preset not found before removal")
	}

	// Remove preset
	manager.RemovePreset("burst")

	// Verify preset is gone and the default was cleared
	if _, found := manager.GetPreset("burst"); found {
		t.Error("preset still exists after removal")
	}

	if manager.GetConfig().DefaultPreset != "" {
		t.Errorf("default preset %q not cleared after removal", manager.GetConfig().DefaultPreset)
	}
}

func TestManager_SetDefaultPreset(t *testing.T) {
	configContent := `
presets:
  burst:
    producers: 8
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	manager := NewManager(configPath)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := manager.SetDefaultPreset("burst"); err != nil {
		t.Fatalf("failed to set default preset: %v", err)
	}

	if manager.GetConfig().DefaultPreset != "burst" {
		t.Errorf("got default preset %q, want burst", manager.GetConfig().DefaultPreset)
	}

	// Unknown presets are rejected
	err := manager.SetDefaultPreset("ghost")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !errors.Is(err, util.ErrPresetNotFound) {
		t.Errorf("got error %v, want ErrPresetNotFound", err)
	}
}

func TestManager_PresetNames(t *testing.T) {
	configContent := `
defaultPreset: steady
presets:
  burst:
    producers: 8
  steady:
    producers: 1
  soak:
    producers: 2
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	manager := NewManager(configPath)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	names := manager.PresetNames()
	want := []string{"steady", "burst", "soak"}

	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}

	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestManager_PresetsByLabel(t *testing.T) {
	configContent := `
presets:
  burst:
    producers: 8
    labels:
      profile: stress
      size: small
  soak:
    producers: 2
    labels:
      profile: stress
      size: large
  steady:
    producers: 1
    labels:
      profile: smoke
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	manager := NewManager(configPath)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	tests := []struct {
		name      string
		labels    map[string]string
		wantCount int
		wantNames []string
	}{
		{
			name: "match by profile=stress",
			labels: map[string]string{
				"profile": "stress",
			},
			wantCount: 2,
		},
		{
			name: "match by profile and size",
			labels: map[string]string{
				"profile": "stress",
				"size":    "large",
			},
			wantCount: 1,
			wantNames: []string{"soak"},
		},
		{
			name:      "match all (empty labels)",
			labels:    map[string]string{},
			wantCount: 3,
		},
		{
			name: "no matches",
			labels: map[string]string{
				"profile": "bench",
			},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presets := manager.PresetsByLabel(tt.labels)

			if len(presets) != tt.wantCount {
				t.Errorf("got %d presets, want %d", len(presets), tt.wantCount)
			}

			if tt.wantNames != nil {
				presetMap := make(map[string]bool)
				for _, name := range presets {
					presetMap[name] = true
				}

				for _, wantName := range tt.wantNames {
					if !presetMap[wantName] {
						t.Errorf("preset %q not found in results", wantName)
					}
				}
			}
		})
	}
}

func TestManager_ResolvePreset(t *testing.T) {
	configContent := `
defaultPreset: steady
presets:
  burst:
    capacity: 5
    producers: 8
  steady:
    producers: 1
defaults:
  capacity: 20
  producers: 3
  consumers: 2
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".conveyor.yaml")

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	manager := NewManager(configPath)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	t.Run("named preset inherits defaults", func(t *testing.T) {
		preset, err := manager.ResolvePreset("burst")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if preset.Capacity != 5 {
			t.Errorf("got capacity %d, want 5", preset.Capacity)
		}
		if preset.Producers != 8 {
			t.Errorf("got producers %d, want 8", preset.Producers)
		}
		if preset.Consumers != 2 {
			t.Errorf("got consumers %d, want 2 from defaults", preset.Consumers)
		}
	})

	t.Run("empty name uses default preset", func(t *testing.T) {
		preset, err := manager.ResolvePreset("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if preset.Producers != 1 {
			t.Errorf("got producers %d, want 1 from steady preset", preset.Producers)
		}
		if preset.Capacity != 20 {
			t.Errorf("got capacity %d, want 20 from defaults", preset.Capacity)
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := manager.ResolvePreset("ghost")
		if err == nil {
			t.Fatal("expected error for unknown preset")
		}
		if !errors.Is(err, util.ErrPresetNotFound) {
			t.Errorf("got error %v, want ErrPresetNotFound", err)
		}
	})
}

func TestManager_ResolvePresetNoConfig(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), ".conveyor.yaml"))
	if _, err := manager.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	preset, err := manager.ResolvePreset("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if preset.Capacity != DefaultCapacity {
		t.Errorf("got capacity %d, want %d", preset.Capacity, DefaultCapacity)
	}
	if preset.Producers != DefaultProducers {
		t.Errorf("got producers %d, want %d", preset.Producers, DefaultProducers)
	}
	if preset.Consumers != DefaultConsumers {
		t.Errorf("got consumers %d, want %d", preset.Consumers, DefaultConsumers)
	}
}

func TestManager_Validate(t *testing.T) {
	t.Run("defaults pass validation", func(t *testing.T) {
		manager := NewManager(filepath.Join(t.TempDir(), ".conveyor.yaml"))
		if _, err := manager.Load(); err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if err := manager.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	t.Run("collects every violation", func(t *testing.T) {
		configContent := `
defaultPreset: ghost
presets:
  slow:
    producers: -2
    consumeDelay: -5ms
defaults:
  capacity: -1
  outputFormat: csv
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".conveyor.yaml")

		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		manager := NewManager(configPath)
		if _, err := manager.Load(); err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		err := manager.Validate()
		if err == nil {
			t.Fatal("expected validation error, got nil")
		}

		if !errors.Is(err, util.ErrInvalidConfig) {
			t.Errorf("got error %v, want ErrInvalidConfig", err)
		}

		var multi *util.MultiError
		if !errors.As(err, &multi) {
			t.Fatalf("expected MultiError, got %T", err)
		}

		// capacity, outputFormat, defaultPreset, producers, consumeDelay
		if len(multi.Errors) != 5 {
			t.Errorf("got %d violations, want 5: %v", len(multi.Errors), multi)
		}
	})
}

func TestManager_Save(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	manager := NewManager(configPath)

	// Set some configuration
	manager.SetPreset("soak", PresetConfig{
		Description: "long soak run",
		Capacity:    3,
		Producers:   2,
		Consumers:   4,
		Labels: map[string]string{
			"profile": "soak",
		},
	})

	// Save the configuration
	if err := manager.Save(); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Load it back and verify
	manager2 := NewManager(configPath)
	config, err := manager2.Load()
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}

	if len(config.Presets) != 1 {
		t.Errorf("got %d presets, want 1", len(config.Presets))
	}

	preset, found := config.Presets["soak"]
	if !found {
		t.Fatal("soak preset not found in saved config")
	}

	if preset.Consumers != 4 {
		t.Errorf("got consumers %d, want 4", preset.Consumers)
	}

	if preset.Labels["profile"] != "soak" {
		t.Errorf("got profile label %q, want soak", preset.Labels["profile"])
	}
}
