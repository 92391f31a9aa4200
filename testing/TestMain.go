// Package testing switches the console into test mode when imported by a test
// binary: no Postgres, no asynq, and secrets that satisfy config loading.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var defaults = map[string]string{
	"VALHALLA_TEST_MODE": "1",
	"SESSION_SECRET":     "test-session-secret",
	"CSRF_SECRET":        "test-csrf-secret",
	"VALHALLA_API_URL":   "http://127.0.0.1:0/api",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range defaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from packages that need test mode before any
// init-time configuration is read.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
