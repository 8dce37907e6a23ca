package driven

// ConfigStore holds the user's persisted settings as flat dotted keys
// ("llm.provider", "audit.max_attempts"). Typed getters return the zero
// value when a key is absent or holds another type; callers that need to
// tell the two apart use Get.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores value under key. File-backed stores persist before returning.
	Set(key string, value any) error

	// Unset removes key so the built-in default applies again.
	// Removing a missing key is not an error.
	Unset(key string) error

	// Path is where the settings live, or "" for stores with no backing file.
	Path() string
}
