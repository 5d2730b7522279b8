package aerrors_test

import (
	"fmt"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
)

func TestFatalError(t *testing.T) {
	tf.UnitTest(t)
	e1 := xerrors.New("out of disk space")
	e2 := xerrors.Errorf("could not put block: %w", e1)
	ae := aerrors.Escalate(e2, "failed to merge frame buffer")
	aw1 := aerrors.Wrap(ae, "returning from frame 2")
	aw2 := aerrors.Absorb(aw1, 1, "try to absorb fatal error")
	aw3 := aerrors.Wrap(aw2, "returning from frame 1")
	t.Logf("Verbose error: %+v", aw3)
	assert.True(t, aerrors.IsFatal(aw3), "should be fatal")

	wrapped := fmt.Errorf("execute message: %w", aw3)
	fatal, ok := aerrors.AsFatal(wrapped)
	require.True(t, ok)
	assert.True(t, fatal.IsFatal())
}

func TestAbsorbError(t *testing.T) {
	tf.UnitTest(t)
	e1 := xerrors.New("EOF")
	e2 := xerrors.Errorf("could not decode: %w", e1)
	ae := aerrors.Absorb(e2, exitcode.ErrSerialization, "failed to decode params")
	aw1 := aerrors.Wrap(ae, "invoking method 2")
	aw2 := aerrors.Wrapf(aw1, "frame %d", 1)
	assert.Equal(t, exitcode.ErrSerialization, aerrors.RetCode(aw2))
	assert.False(t, aerrors.IsFatal(aw2))

	_, ok := aerrors.AsFatal(aw2)
	assert.False(t, ok)
}

func TestZeroRetCodeIsFatal(t *testing.T) {
	tf.UnitTest(t)
	assert.True(t, aerrors.IsFatal(aerrors.New(exitcode.Ok, "oops")))
	assert.True(t, aerrors.IsFatal(aerrors.Newf(exitcode.Ok, "oops %d", 1)))
	assert.Equal(t, exitcode.Ok, aerrors.RetCode(nil))
	assert.Nil(t, aerrors.Wrap(nil, "nothing"))
}
