package cli

import (
	"os"
	"strconv"
	"strings"
)

// envOr returns the environment variable upper-cased key's value, or def
// if unset. spec.md §6: "Every flag also binds an environment variable
// of the same name upper-cased."
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(strings.ToUpper(key)); ok {
		return v
	}
	return def
}

func envOrBool(key string, def bool) bool {
	v, ok := os.LookupEnv(strings.ToUpper(key))
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrInt(key string, def int) int {
	v, ok := os.LookupEnv(strings.ToUpper(key))
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envList splits a comma-separated environment variable into a slice,
// used for private_cidrs.
func envList(key string) []string {
	v, ok := os.LookupEnv(strings.ToUpper(key))
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
