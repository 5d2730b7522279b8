package trace_test

import (
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/trace"
)

func idAddr(t *testing.T, id uint64) address.Address {
	a, err := address.NewIDAddress(id)
	require.NoError(t, err)
	return a
}

func TestTreeFromNestedEvents(t *testing.T) {
	tf.UnitTest(t)

	tr := trace.New()
	a, b, c := idAddr(t, 100), idAddr(t, 101), idAddr(t, 102)

	tr.OnCall(0, a, b, 2, abi.NewTokenAmount(0), nil, 1000)
	tr.OnCall(1, b, c, 3, abi.NewTokenAmount(5), []byte{1}, 500)
	tr.OnReturn(1, exitcode.ExitCode(17), nil, 20, nil, "boom")
	tr.OnCall(1, b, a, 4, abi.NewTokenAmount(0), nil, 480)
	tr.OnReturn(1, exitcode.Ok, []byte{2}, 30, nil, "")
	tr.OnReturn(0, exitcode.Ok, nil, 90, nil, "")

	require.NoError(t, tr.WellFormed())
	assert.Equal(t, 6, tr.Len())

	root, err := tr.Tree()
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, b, root.Msg.To)
	assert.Equal(t, int64(90), root.MsgRct.GasUsed)
	require.Len(t, root.Subcalls, 2)
	assert.Equal(t, exitcode.ExitCode(17), root.Subcalls[0].MsgRct.ExitCode)
	assert.Equal(t, "boom", root.Subcalls[0].Error)
	assert.Equal(t, []byte{2}, root.Subcalls[1].MsgRct.Return)

	var depths []int
	root.Walk(func(depth int, _ *trace.ExecutionTrace) {
		depths = append(depths, depth)
	})
	assert.Equal(t, []int{0, 1, 1}, depths)
}

func TestWellFormedRejectsBadSequences(t *testing.T) {
	tf.UnitTest(t)
	a := idAddr(t, 100)

	unmatched := trace.New()
	unmatched.OnReturn(0, exitcode.Ok, nil, 0, nil, "")
	assert.Error(t, unmatched.WellFormed())

	open := trace.New()
	open.OnCall(0, a, a, 0, abi.NewTokenAmount(0), nil, 10)
	assert.Error(t, open.WellFormed())
	_, err := open.Tree()
	assert.Error(t, err)

	skipped := trace.New()
	skipped.OnCall(0, a, a, 0, abi.NewTokenAmount(0), nil, 10)
	skipped.OnCall(2, a, a, 0, abi.NewTokenAmount(0), nil, 10)
	assert.Error(t, skipped.WellFormed())
}

func TestNilTracerIsNoop(t *testing.T) {
	tf.UnitTest(t)

	var tr *trace.Tracer
	tr.OnCall(0, idAddr(t, 1), idAddr(t, 2), 0, abi.NewTokenAmount(0), nil, 0)
	tr.OnReturn(0, exitcode.Ok, nil, 0, nil, "")
	assert.Equal(t, 0, tr.Len())
	assert.NoError(t, tr.WellFormed())

	root, err := tr.Tree()
	assert.NoError(t, err)
	assert.Nil(t, root)
}
