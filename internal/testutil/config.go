package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// ResetConfig resets viper for the duration of the test and again on cleanup.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetViperValue sets a viper configuration value and restores the previous one on cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
		// viper has no Unset; an unset key keeps the test value until the next Reset.
	})
}

// SetupTestCache points the lookup cache at a database inside the test environment.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	env.MkdirAll("cache")
	dbPath := env.Path("cache", "test-cache.db")
	SetViperValue(t, "cache.dbfile", dbPath)
	SetViperValue(t, "cache.ttl", "24h")

	return dbPath
}
