package signal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"connectrpc.com/connect"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	mapv2connect "git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
)

type fakeSim struct {
	mtx      sync.Mutex
	snapshot *entity.Snapshot
	commands []entity.Command
}

func (s *fakeSim) Published() *entity.Snapshot { return s.snapshot }
func (s *fakeSim) Submit(cmd entity.Command) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.commands = append(s.commands, cmd)
	return true
}

func publishedSim(t *testing.T) (*fakeSim, *signal.Scheduler) {
	l, _ := newScheduler(t, map[string]entity.ClassCounts{"a": {300, 0, 0}, "b": {100, 0, 0}})
	l.Update(2)
	return &fakeSim{snapshot: &entity.Snapshot{
		Signal:       l.State(),
		Program:      l.Program(),
		ProgramIndex: l.ProgramIndex(),
	}}, l
}

func TestServiceGetTrafficLight(t *testing.T) {
	sim, l := publishedSim(t)
	svc := signal.NewService(7, sim)
	path, handler := mapv2connect.NewTrafficLightServiceHandler(svc)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := mapv2connect.NewTrafficLightServiceClient(http.DefaultClient, srv.URL)
	res, err := client.GetTrafficLight(context.Background(), connect.NewRequest(&mapv2.GetTrafficLightRequest{JunctionId: 7}))
	require.NoError(t, err)
	assert.Equal(t, int32(0), res.Msg.PhaseIndex)
	assert.Equal(t, l.State().Remaining, res.Msg.TimeRemaining)
	require.Len(t, res.Msg.TrafficLight.Phases, 6)
	assert.InDelta(t, 60, res.Msg.TrafficLight.Phases[0].Duration, 1e-9)

	_, err = client.GetTrafficLight(context.Background(), connect.NewRequest(&mapv2.GetTrafficLightRequest{JunctionId: 1}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestServiceNotStarted(t *testing.T) {
	svc := signal.NewService(7, &fakeSim{})
	_, err := svc.GetTrafficLight(context.Background(), connect.NewRequest(&mapv2.GetTrafficLightRequest{JunctionId: 7}))
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestServiceSetPhase(t *testing.T) {
	sim, _ := publishedSim(t)
	svc := signal.NewService(7, sim)
	ctx := context.Background()

	_, err := svc.SetTrafficLightPhase(ctx, connect.NewRequest(&mapv2.SetTrafficLightPhaseRequest{JunctionId: 7, PhaseIndex: 3}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Empty(t, sim.commands)

	_, err = svc.SetTrafficLightPhase(ctx, connect.NewRequest(&mapv2.SetTrafficLightPhaseRequest{JunctionId: 7, PhaseIndex: 1}))
	require.NoError(t, err)
	assert.Equal(t, []entity.Command{entity.CommandSkip}, sim.commands)

	sim.snapshot.Signal.Sub = entity.SubStateAmber
	_, err = svc.SetTrafficLightPhase(ctx, connect.NewRequest(&mapv2.SetTrafficLightPhaseRequest{JunctionId: 7, PhaseIndex: 2}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = svc.SetTrafficLight(ctx, connect.NewRequest(&mapv2.SetTrafficLightRequest{}))
	assert.Equal(t, connect.CodeUnimplemented, connect.CodeOf(err))
	assert.ErrorIs(t, err, signal.ErrProgramReadOnly)
}

func TestServiceSetStatus(t *testing.T) {
	sim, _ := publishedSim(t)
	svc := signal.NewService(7, sim)
	ctx := context.Background()
	_, err := svc.SetTrafficLightStatus(ctx, connect.NewRequest(&mapv2.SetTrafficLightStatusRequest{JunctionId: 7, Ok: false}))
	require.NoError(t, err)
	_, err = svc.SetTrafficLightStatus(ctx, connect.NewRequest(&mapv2.SetTrafficLightStatusRequest{JunctionId: 7, Ok: true}))
	require.NoError(t, err)
	assert.Equal(t, []entity.Command{entity.CommandPause, entity.CommandResume}, sim.commands)
}
