package software

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waylens/waylens/internal/interfaces"
)

func TestAcquireFBReturnsCorrectDimensions(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)

	fb, err := ctx.AcquireFB(1920, 1080)
	require.NoError(t, err)
	require.Equal(t, 1920, fb.Width())
	require.Equal(t, 1080, fb.Height())
}

func TestReleasedFramebufferIsReusedBySize(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)

	fb1, err := ctx.AcquireFB(640, 480)
	require.NoError(t, err)
	fb1.Release()

	fb2, err := ctx.AcquireFB(640, 480)
	require.NoError(t, err)
	require.Same(t, fb1, fb2)
}

func TestDifferentSizedFramebufferIsNotReused(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)

	fb1, err := ctx.AcquireFB(640, 480)
	require.NoError(t, err)
	fb1.Release()

	fb2, err := ctx.AcquireFB(800, 600)
	require.NoError(t, err)
	require.NotSame(t, fb1, fb2)
}

func TestSubmitFrameRecordsDamageAndFrameCount(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)
	fb, err := ctx.AcquireFB(100, 100)
	require.NoError(t, err)

	damage := []interfaces.Rect{{X: 0, Y: 0, W: 50, H: 50}}
	require.NoError(t, ctx.SubmitFrame(fb, damage))

	c := ctx.(*Context)
	require.EqualValues(t, 1, c.FrameCount())
	require.Equal(t, damage, c.LastDamage())
}

func TestSubmitFrameRejectsForeignFramebuffer(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)
	require.Error(t, ctx.SubmitFrame(fakeFB{}, nil))
}

type fakeFB struct{}

func (fakeFB) Width() int  { return 1 }
func (fakeFB) Height() int { return 1 }
func (fakeFB) Release()    {}

func TestCloseRejectsFurtherAcquireAndSubmit(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)
	fb, err := ctx.AcquireFB(10, 10)
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	_, err = ctx.AcquireFB(10, 10)
	require.Error(t, err)
	require.Error(t, ctx.SubmitFrame(fb, nil))
}

func TestImportDMABUFRejectsInvalidDimensions(t *testing.T) {
	ctx, err := New().CreateContext()
	require.NoError(t, err)
	_, err = ctx.ImportDMABUF(3, 0, 10, 0)
	require.Error(t, err)
}
