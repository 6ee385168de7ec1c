package runtime

import "os"

// Getenv returns the value of key, or fallback when the variable is unset or
// empty.
func Getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
