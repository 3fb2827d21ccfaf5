package config

// Config is the contract every configuration section implements.
type Config interface {
	// GetName returns the section name, which is also the file base name
	// the manager loads the section from.
	GetName() string
	// Validate checks the loaded values for consistency.
	Validate() error
}

// ConfigChangeListener receives notifications when a watched configuration
// section is reloaded from disk.
type ConfigChangeListener interface {
	// OnConfigChanged is called with the reloaded section. Returning an
	// error rejects the new values and keeps the previous ones.
	OnConfigChanged(configName string, newConfig, oldConfig Config) error
	// GetConfigName returns the section name the listener cares about.
	GetConfigName() string
}
