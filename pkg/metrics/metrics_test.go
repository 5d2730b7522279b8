package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
)

func TestCounterSums(t *testing.T) {
	tf.BadUnitTestWithSideEffects(t)

	ctx := context.Background()
	c := NewInt64Counter("test/counter_sums", "testDesc")
	// views stay registered after a test exits unless removed
	defer view.Unregister(c.view)

	c.Inc(ctx, 3)
	c.Inc(ctx, 4)

	rows, err := view.RetrieveData("test/counter_sums")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(7), rows[0].Data.(*view.SumData).Value)
}

func TestTimerSimple(t *testing.T) {
	tf.BadUnitTestWithSideEffects(t)

	ctx := context.Background()

	testTimer := NewTimerMs("testName", "testDesc")
	defer view.Unregister(testTimer.view)

	assert.Equal(t, "testName", testTimer.view.Name)
	assert.Equal(t, "testDesc", testTimer.view.Description)

	sw := testTimer.Start(ctx)
	sw.Stop(ctx)
	assert.False(t, sw.start.IsZero())
}

func TestDuplicateTimersPanics(t *testing.T) {
	tf.BadUnitTestWithSideEffects(t)

	first := NewTimerMs("testDup", "testDesc")
	defer view.Unregister(first.view)

	assert.Panics(t, func() {
		NewTimerMs("testDup", "otherDesc")
	})
}
