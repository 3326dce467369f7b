package clock_test

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/clock"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

func TestClockAdvance(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 0, Total: 3, Interval: 0.5})
	assert.False(t, c.Unlimited())
	assert.False(t, c.IsLastStep())
	c.Advance()
	c.Advance()
	assert.Equal(t, int32(2), c.InternalStep)
	assert.Equal(t, 1., c.T)
	assert.True(t, c.IsLastStep())

	// 未发布前RPC看到的仍是旧时间
	assert.Equal(t, 0., c.Published())
	c.Publish()
	res, err := c.Now(context.Background(), connect.NewRequest(&clockv1.NowRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 1., res.Msg.T)

	c.Init()
	assert.Equal(t, int32(0), c.InternalStep)
	assert.Equal(t, 0., c.Published())
}

func TestClockString(t *testing.T) {
	c := clock.New(config.ControlStep{Interval: 1})
	assert.True(t, c.Unlimited())
	assert.False(t, c.IsLastStep())
	c.T = 3725.5
	assert.Equal(t, "01:02:05", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, m)
	assert.InDelta(t, 5.5, s, 1e-9)
}
