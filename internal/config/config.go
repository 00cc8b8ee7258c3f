package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"

	"github.com/aryankumar/conveyor/internal/pipeline"
	"github.com/aryankumar/conveyor/internal/util"
)

const defaultConfigDir = ".conveyor"

// Manager handles conveyor configuration
type Manager struct {
	configPath string
	config     *ConveyorConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &ConveyorConfig{},
	}
}

// Load loads the conveyor configuration from file
func (m *Manager) Load() (*ConveyorConfig, error) {
	// Set up config file path
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		// Try ~/.conveyor.yaml first, then ~/.conveyor/config.yaml
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		dotfile := filepath.Join(home, defaultConfigDir+".yaml")
		if _, err := os.Stat(dotfile); err == nil {
			m.viper.SetConfigFile(dotfile)
		} else {
			m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
			m.viper.SetConfigName("config")
			m.viper.SetConfigType("yaml")
		}
	}

	// Set environment variable support
	m.viper.SetEnvPrefix("CONVEYOR")
	m.viper.AutomaticEnv()

	// Initialize config to ensure defaults are set even for empty configs
	m.config = &ConveyorConfig{}

	// Read config file
	if err := m.viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		// Check for both ConfigFileNotFoundError and os.IsNotExist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// File doesn't exist, apply defaults and return
		m.applyDefaults()
		return m.config, nil
	}

	// Unmarshal into config struct
	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults
	m.applyDefaults()

	return m.config, nil
}

// Save saves the current configuration to file
func (m *Manager) Save() error {
	if m.configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		configDir := filepath.Join(home, defaultConfigDir)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		m.configPath = filepath.Join(configDir, "config.yaml")
	}

	// Ensure directory exists
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config to file
	if err := m.viper.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *ConveyorConfig {
	return m.config
}

// GetPreset returns the preset with the given name
func (m *Manager) GetPreset(name string) (*PresetConfig, bool) {
	if m.config.Presets == nil {
		return nil, false
	}

	preset, ok := m.config.Presets[name]
	return &preset, ok
}

// SetPreset sets or updates a named preset
func (m *Manager) SetPreset(name string, preset PresetConfig) {
	if m.config.Presets == nil {
		m.config.Presets = make(map[string]PresetConfig)
	}

	m.config.Presets[name] = preset
	m.viper.Set("presets", m.config.Presets)
}

// RemovePreset removes a named preset. Removing the default preset clears
// the default.
func (m *Manager) RemovePreset(name string) {
	if m.config.Presets == nil {
		return
	}

	delete(m.config.Presets, name)
	m.viper.Set("presets", m.config.Presets)

	if m.config.DefaultPreset == name {
		m.config.DefaultPreset = ""
		m.viper.Set("defaultPreset", "")
	}
}

// SetDefaultPreset marks an existing preset as the default
func (m *Manager) SetDefaultPreset(name string) error {
	if _, ok := m.GetPreset(name); !ok {
		return util.WrapErrorf(util.ErrPresetNotFound, "preset %q", name)
	}

	m.config.DefaultPreset = name
	m.viper.Set("defaultPreset", name)
	return nil
}

// PresetNames returns the preset names, default preset first, the rest
// sorted alphabetically.
func (m *Manager) PresetNames() []string {
	names := make([]string, 0, len(m.config.Presets))
	for name := range m.config.Presets {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if (names[i] == m.config.DefaultPreset) != (names[j] == m.config.DefaultPreset) {
			return names[i] == m.config.DefaultPreset
		}
		return names[i] < names[j]
	})

	return names
}

// PresetsByLabel returns presets matching the given labels
func (m *Manager) PresetsByLabel(labels map[string]string) []string {
	matching := make([]string, 0)
	for _, name := range m.PresetNames() {
		if matchesLabels(m.config.Presets[name].Labels, labels) {
			matching = append(matching, name)
		}
	}

	return matching
}

// ResolvePreset resolves a preset name into a full topology, filling
// zero-valued fields from the defaults. An empty name falls back to the
// configured default preset, or to pure defaults when none is set.
func (m *Manager) ResolvePreset(name string) (PresetConfig, error) {
	if name == "" {
		name = m.config.DefaultPreset
	}

	var preset PresetConfig
	if name != "" {
		p, ok := m.GetPreset(name)
		if !ok {
			return PresetConfig{}, util.WrapErrorf(util.ErrPresetNotFound, "preset %q", name)
		}
		preset = *p
	}

	if preset.Capacity == 0 {
		preset.Capacity = m.config.Defaults.Capacity
	}
	if preset.Producers == 0 {
		preset.Producers = m.config.Defaults.Producers
	}
	if preset.Consumers == 0 {
		preset.Consumers = m.config.Defaults.Consumers
	}

	return preset, nil
}

// Validate checks the loaded configuration and collects every violation
// rather than stopping at the first one.
func (m *Manager) Validate() error {
	errs := &util.MultiError{}

	d := m.config.Defaults
	if d.Capacity < 1 {
		errs.Add(util.NewValidationError("defaults.capacity", d.Capacity, "must be at least 1"))
	}
	if d.Producers < 1 {
		errs.Add(util.NewValidationError("defaults.producers", d.Producers, "must be at least 1"))
	}
	if d.Consumers < 1 {
		errs.Add(util.NewValidationError("defaults.consumers", d.Consumers, "must be at least 1"))
	}
	if d.PutTimeout <= 0 {
		errs.Add(util.NewValidationError("defaults.putTimeout", d.PutTimeout, "must be positive"))
	}
	if d.GetTimeout <= 0 {
		errs.Add(util.NewValidationError("defaults.getTimeout", d.GetTimeout, "must be positive"))
	}
	if d.JoinBudget <= 0 {
		errs.Add(util.NewValidationError("defaults.joinBudget", d.JoinBudget, "must be positive"))
	}
	switch d.OutputFormat {
	case "table", "json", "yaml":
	default:
		errs.Add(util.NewValidationError("defaults.outputFormat", d.OutputFormat, "must be table, json, or yaml"))
	}

	if m.config.DefaultPreset != "" {
		if _, ok := m.GetPreset(m.config.DefaultPreset); !ok {
			errs.Add(util.NewValidationError("defaultPreset", m.config.DefaultPreset, "preset does not exist"))
		}
	}

	for _, name := range m.PresetNames() {
		p := m.config.Presets[name]
		field := func(f string) string { return fmt.Sprintf("presets.%s.%s", name, f) }

		if p.Capacity < 0 {
			errs.Add(util.NewValidationError(field("capacity"), p.Capacity, "must not be negative"))
		}
		if p.Producers < 0 {
			errs.Add(util.NewValidationError(field("producers"), p.Producers, "must not be negative"))
		}
		if p.Consumers < 0 {
			errs.Add(util.NewValidationError(field("consumers"), p.Consumers, "must not be negative"))
		}
		if p.Items < 0 {
			errs.Add(util.NewValidationError(field("items"), p.Items, "must not be negative"))
		}
		if p.ProduceDelay < 0 {
			errs.Add(util.NewValidationError(field("produceDelay"), p.ProduceDelay, "must not be negative"))
		}
		if p.ConsumeDelay < 0 {
			errs.Add(util.NewValidationError(field("consumeDelay"), p.ConsumeDelay, "must not be negative"))
		}
	}

	return errs.ErrorOrNil()
}

// applyDefaults sets default values for configuration
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	if m.config.Defaults.Capacity == 0 {
		m.config.Defaults.Capacity = DefaultCapacity
	}
	if m.config.Defaults.Producers == 0 {
		m.config.Defaults.Producers = DefaultProducers
	}
	if m.config.Defaults.Consumers == 0 {
		m.config.Defaults.Consumers = DefaultConsumers
	}
	if m.config.Defaults.PutTimeout == 0 {
		m.config.Defaults.PutTimeout = pipeline.DefaultPutTimeout
	}
	if m.config.Defaults.GetTimeout == 0 {
		m.config.Defaults.GetTimeout = pipeline.DefaultGetTimeout
	}
	if m.config.Defaults.JoinBudget == 0 {
		m.config.Defaults.JoinBudget = pipeline.DefaultJoinBudget
	}
	if m.config.Defaults.OutputFormat == "" {
		m.config.Defaults.OutputFormat = DefaultOutputFormat
	}
}

// matchesLabels checks if preset labels match the required labels
func matchesLabels(presetLabels, requiredLabels map[string]string) bool {
	if len(requiredLabels) == 0 {
		return true
	}

	for key, value := range requiredLabels {
		presetValue, exists := presetLabels[key]
		if !exists || presetValue != value {
			return false
		}
	}

	return true
}
