package testflags

import (
	"os"
	"testing"
)

// IntegrationTest skips tests that spawn processes or touch the network
// beyond loopback unless MESSAGIC_ENABLE_INTEGRATION_TESTS is set.
func IntegrationTest(t *testing.T) {
	if _, ok := os.LookupEnv("MESSAGIC_ENABLE_INTEGRATION_TESTS"); !ok {
		t.SkipNow()
	}
}
