package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv names the variable that keeps binaries from opening connections
// while the test suite imports them.
const TestModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(err == nil && on)
}

// InTestMode reports whether cmd entrypoints should return before touching
// Postgres, Redis or the network.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the variable after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	readTestMode()
}
