package config

// DefaultValues returns the default config-minibeads.yaml key/value pairs.
func DefaultValues() map[string]string {
	return map[string]string{
		"mb-hash-ids":          "false",
		"mb-no-cmd-logging":    "false",
		"mb-validation-mode":   "warn",
		"mb-sync-tolerance-ms": "1000",
	}
}

// ApplyDefaults fills any missing keys in s with their default values.
func ApplyDefaults(s Store) error {
	defaults := DefaultValues()
	all := s.All()
	for k, v := range defaults {
		if _, exists := all[k]; !exists {
			if err := s.Set(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}
