package junction

import (
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// 依赖倒置，表达junction对信号机的接口需求

// 车辆更新时读取的灯色接口
type ILightGetter interface {
	Light(approach string) mapv2.LightState // 进口道当前灯色
}

// Stats 进口道累计统计
type Stats struct {
	Spawned    int32 // 生成的车辆数
	Released   int32 // 越过停车线的车辆数
	Throughput int32 // 驶出路口的车辆数
}

func (s Stats) String() string {
	return fmt.Sprintf("spawned=%d released=%d throughput=%d", s.Spawned, s.Released, s.Throughput)
}

// add 累加另一份统计
func (s *Stats) add(o Stats) {
	s.Spawned += o.Spawned
	s.Released += o.Released
	s.Throughput += o.Throughput
}
