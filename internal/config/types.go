package config

import "time"

// Topology and timing defaults applied when the config file leaves them unset.
const (
	DefaultCapacity     = 10
	DefaultProducers    = 3
	DefaultConsumers    = 2
	DefaultOutputFormat = "table"
)

// ConveyorConfig represents the conveyor configuration file structure
type ConveyorConfig struct {
	// DefaultPreset is the preset used when none is named on the command line
	DefaultPreset string `yaml:"defaultPreset,omitempty" json:"defaultPreset,omitempty"`

	// Presets is a map of preset names to pipeline topologies
	Presets map[string]PresetConfig `yaml:"presets,omitempty" json:"presets,omitempty"`

	// Defaults contains default settings for runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// PresetConfig is a named pipeline topology. Zero-valued fields inherit from
// the configured defaults when the preset is resolved.
type PresetConfig struct {
	// Description is a short summary shown in preset listings
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Capacity is the queue capacity
	Capacity int `yaml:"capacity,omitempty" json:"capacity,omitempty"`

	// Producers is the number of producer workers
	Producers int `yaml:"producers,omitempty" json:"producers,omitempty"`

	// Consumers is the number of consumer workers
	Consumers int `yaml:"consumers,omitempty" json:"consumers,omitempty"`

	// Items is the number of items each producer emits
	Items int `yaml:"items,omitempty" json:"items,omitempty"`

	// ProduceDelay is the pause before each produced item
	ProduceDelay time.Duration `yaml:"produceDelay,omitempty" json:"produceDelay,omitempty"`

	// ConsumeDelay is the pause while handling each consumed item
	ConsumeDelay time.Duration `yaml:"consumeDelay,omitempty" json:"consumeDelay,omitempty"`

	// Labels for organizing presets
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Capacity is the default queue capacity
	Capacity int `yaml:"capacity,omitempty" json:"capacity,omitempty"`

	// Producers is the default number of producer workers
	Producers int `yaml:"producers,omitempty" json:"producers,omitempty"`

	// Consumers is the default number of consumer workers
	Consumers int `yaml:"consumers,omitempty" json:"consumers,omitempty"`

	// PutTimeout bounds a single enqueue attempt
	PutTimeout time.Duration `yaml:"putTimeout,omitempty" json:"putTimeout,omitempty"`

	// GetTimeout bounds a single dequeue attempt
	GetTimeout time.Duration `yaml:"getTimeout,omitempty" json:"getTimeout,omitempty"`

	// JoinBudget bounds the collective wait during forceful shutdown
	JoinBudget time.Duration `yaml:"joinBudget,omitempty" json:"joinBudget,omitempty"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}
