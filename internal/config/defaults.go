package config

// Backend page-size ceiling for /api/search/snippets.
const maxPageLimit = 50

// ApplyDefaults sets default values for any zero values in cfg and clamps
// out-of-range settings.
func ApplyDefaults(cfg *Config) {
	if cfg.Collaborator.BaseURL == "" {
		cfg.Collaborator.BaseURL = "http://localhost:8000"
	}
	if cfg.Collaborator.TimeoutSeconds == 0 {
		cfg.Collaborator.TimeoutSeconds = 10
	}
	if cfg.Search.DebounceMS == 0 {
		cfg.Search.DebounceMS = 120
	}
	if cfg.Search.PageLimit == 0 {
		cfg.Search.PageLimit = 10
	}
	if cfg.Search.PageLimit > maxPageLimit {
		cfg.Search.PageLimit = maxPageLimit
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = "file"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".config/tansaku/recent_searches.json"
	}
	if cfg.History.MaxEntries == 0 {
		cfg.History.MaxEntries = 6
	}
}
