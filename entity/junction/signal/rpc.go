package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	mapv2connect "git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"google.golang.org/protobuf/proto"
)

var (
	ErrProgramReadOnly = errors.New("signal: traffic light program is computed from load and cannot be set")
)

// Service 信号灯RPC服务
// 功能：读取最近发布的快照，写操作转换为控制指令在仿真步边界生效
// 说明：不直接访问信号机，可以在任意协程中调用
type Service struct {
	mapv2connect.UnimplementedTrafficLightServiceHandler

	junctionID int32
	sim        entity.ISimulation
}

// NewService 创建信号灯RPC服务
func NewService(junctionID int32, sim entity.ISimulation) *Service {
	return &Service{junctionID: junctionID, sim: sim}
}

// Register 将信号灯服务注册到sidecar
func (s *Service) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		mapv2connect.TrafficLightServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return mapv2connect.NewTrafficLightServiceHandler(s, opts...)
		},
		syncer.WithNoLock(),
	)
}

func (s *Service) checkJunction(id int32) error {
	if id != s.junctionID {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("junction id %d does not exist", id))
	}
	return nil
}

func (s *Service) published() (*entity.Snapshot, error) {
	snapshot := s.sim.Published()
	if snapshot == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("simulation has not started"))
	}
	return snapshot, nil
}

// GetTrafficLight RPC接口：获取信号灯状态
// 返回：本周期信控程序、当前状态在程序中的下标与剩余时间
func (s *Service) GetTrafficLight(
	ctx context.Context, in *connect.Request[mapv2.GetTrafficLightRequest],
) (*connect.Response[mapv2.GetTrafficLightResponse], error) {
	if err := s.checkJunction(in.Msg.JunctionId); err != nil {
		return nil, err
	}
	snapshot, err := s.published()
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&mapv2.GetTrafficLightResponse{
		TrafficLight:  proto.Clone(snapshot.Program).(*mapv2.TrafficLight),
		PhaseIndex:    snapshot.ProgramIndex,
		TimeRemaining: snapshot.Signal.Remaining,
	}), nil
}

// SetTrafficLight RPC接口：信控程序由负载计算得到，不支持外部设置
func (s *Service) SetTrafficLight(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightRequest],
) (*connect.Response[mapv2.SetTrafficLightResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, ErrProgramReadOnly)
}

// SetTrafficLightPhase RPC接口：提前结束当前绿灯
// 说明：只接受当前相位黄灯在程序中的下标，效果等同于控制台的跳过指令
func (s *Service) SetTrafficLightPhase(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightPhaseRequest],
) (*connect.Response[mapv2.SetTrafficLightPhaseResponse], error) {
	req := in.Msg
	if err := s.checkJunction(req.JunctionId); err != nil {
		return nil, err
	}
	snapshot, err := s.published()
	if err != nil {
		return nil, err
	}
	if snapshot.Signal.Sub != entity.SubStateGreen {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("phase can only be skipped during GREEN, now %v", snapshot.Signal.Sub))
	}
	if want := snapshot.ProgramIndex + 1; req.PhaseIndex != want {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("only the amber of the current phase (index %d) can be entered, got %d", want, req.PhaseIndex))
	}
	s.sim.Submit(entity.CommandSkip)
	return connect.NewResponse(&mapv2.SetTrafficLightPhaseResponse{}), nil
}

// SetTrafficLightStatus RPC接口：暂停或继续仿真
// 说明：ok=false暂停，ok=true继续
func (s *Service) SetTrafficLightStatus(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightStatusRequest],
) (*connect.Response[mapv2.SetTrafficLightStatusResponse], error) {
	req := in.Msg
	if err := s.checkJunction(req.JunctionId); err != nil {
		return nil, err
	}
	if req.Ok {
		s.sim.Submit(entity.CommandResume)
	} else {
		s.sim.Submit(entity.CommandPause)
	}
	return connect.NewResponse(&mapv2.SetTrafficLightStatusResponse{}), nil
}
