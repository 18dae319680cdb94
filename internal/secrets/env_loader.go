package secrets

import "os"

// EnvLoader returns a Loader that reads environment variables and stores
// each under its setting key. vars maps env var name to setting key.
// Unset variables are omitted.
func EnvLoader(vars map[string]string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(vars))
		for env, key := range vars {
			if v := os.Getenv(env); v != "" {
				vals[key] = v
			}
		}
		return vals, nil
	}
}
