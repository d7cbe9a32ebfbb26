package model

import "fmt"

// ExhaustionError is returned when a retry or attempt budget was spent
// without producing the requested results. It is one of only two errors
// that surface to callers; per-source and per-candidate failures are
// absorbed inside the pipeline.
type ExhaustionError struct {
	Wanted   int
	Found    int
	Attempts int
}

func (e *ExhaustionError) Error() string {
	if e.Wanted <= 1 {
		return fmt.Sprintf("no valid proxy found after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("found %d of %d valid proxies after %d attempts", e.Found, e.Wanted, e.Attempts)
}

// ConfigurationError reports invalid caller input, such as an
// unrecognized country code. It is raised before any network activity.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
