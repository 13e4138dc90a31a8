package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envOr reads key from the environment and parses it with parse, falling
// back to def when the variable is unset or malformed. Malformed values
// are silently ignored so a typo degrades to the default instead of
// failing startup.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvAsInt(key string, def int) int {
	return envOr(key, def, strconv.Atoi)
}

func getEnvAsBool(key string, def bool) bool {
	return envOr(key, def, strconv.ParseBool)
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration)
}

func getEnvAsStringSlice(key string, def []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
