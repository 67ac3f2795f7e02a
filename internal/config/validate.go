package config

import (
	"fmt"
	"strconv"
	"strings"
)

// validValues maps known config-minibeads.yaml keys to their allowed
// values. An empty slice means any non-empty string is accepted (but may
// still be checked by a type-specific case below).
var validValues = map[string][]string{
	"mb-hash-ids":          {"true", "false"},
	"mb-no-cmd-logging":    {"true", "false"},
	"mb-validation-mode":   {"silent", "warn", "error"},
	"mb-sync-tolerance-ms": {},
}

// Validate checks every known key present in s. It returns an error
// describing every invalid value found, or nil if all values are valid.
func Validate(s Store) error {
	all := s.All()
	var errs []string

	for key, allowed := range validValues {
		val, ok := all[key]
		if !ok {
			continue
		}

		if len(allowed) > 0 {
			if !contains(allowed, val) {
				errs = append(errs, fmt.Sprintf(
					"%s: invalid value %q (allowed: %s)",
					key, val, strings.Join(allowed, ", ")))
			}
			continue
		}

		switch key {
		case "mb-sync-tolerance-ms":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				errs = append(errs, fmt.Sprintf(
					"%s: must be a non-negative integer, got %q", key, val))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
