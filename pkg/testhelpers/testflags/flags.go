package testflags

import (
	"flag"
	"testing"
)

// Unit and integration tests run by default. Integration tests touch the
// filesystem (badger datastores) and can be switched off with -integration=false.
var (
	integrationTest = flag.Bool("integration", true, "Run the integration go tests")
	unitTest        = flag.Bool("unit", true, "Run the unit go tests")
)

// IntegrationTest runs the calling test in parallel unless `-integration=false`
// was passed to `go test`.
func IntegrationTest(t *testing.T) {
	if !*integrationTest {
		t.SkipNow()
	}
	t.Parallel()
}

// UnitTest runs the calling test in parallel when `-unit` (the default) or
// `-short` is set, and skips it otherwise.
func UnitTest(t *testing.T) {
	if !*unitTest && !testing.Short() {
		t.SkipNow()
	}
	t.Parallel()
}

// BadUnitTestWithSideEffects is UnitTest without t.Parallel, for tests that
// mutate package level state such as registered opencensus views.
func BadUnitTestWithSideEffects(t *testing.T) {
	if !*unitTest && !testing.Short() {
		t.SkipNow()
	}
}
