package driven

// ConfigStore provides access to application configuration.
// Keys use dot notation ("llm.timeout_seconds"); implementations flatten
// nested tables and handle type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString returns "" when the key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 when the key is missing or not an integer.
	GetInt(key string) int

	// GetFloat returns 0 when the key is missing or not a number.
	GetFloat(key string) float64

	// GetBool returns false when the key is missing or not a boolean.
	GetBool(key string) bool

	// Keys lists every stored key in sorted order.
	Keys() []string

	// Set stores a configuration value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
