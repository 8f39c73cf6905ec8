// Package testing puts the binaries into test mode when their tests import
// it for side effects. Backing services default to inert local values so an
// accidental main() never reaches a real database or queue.
package testing

import "os"

var defaults = map[string]string{
	"PARTNERDESK_TEST_MODE": "1",
	"STORE_DRIVER":          "memory",
	"PARTNERS_API_BASE":     "http://127.0.0.1:0",
	"LOG_FORMAT":            "json",
}

func init() {
	for key, value := range defaults {
		if key == "PARTNERDESK_TEST_MODE" {
			_ = os.Setenv(key, value)
			continue
		}
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
	_ = os.Unsetenv("REDIS_ADDR")
}
