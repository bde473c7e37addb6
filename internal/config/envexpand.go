package config

import "os"

// ExpandEnv expands ${VAR} / $VAR references in raw YAML bytes using the
// standard library, exactly as the teacher's pkg/config/envexpand.go does.
// Missing variables expand to empty string; Validate catches required
// fields left empty by a missing variable.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
