package guard

// Config holds the route classification loaded from the environment.
type Config struct {
	ProtectedPrefixes []string `env:"GUARD_PROTECTED_PREFIXES" envDefault:"/dashboard" envSeparator:","`
	AuthOnlyPaths     []string `env:"GUARD_AUTH_ONLY_PATHS" envDefault:"/login,/signup" envSeparator:","`
	LoginPath         string   `env:"GUARD_LOGIN_PATH" envDefault:"/login"`
	LandingPath       string   `env:"GUARD_LANDING_PATH" envDefault:"/dashboard"`
}

// NewFromConfig builds a Guard from cfg.
func NewFromConfig(cfg Config) *Guard {
	return New(cfg.ProtectedPrefixes, cfg.AuthOnlyPaths, cfg.LoginPath, cfg.LandingPath)
}
