package entity

import "fmt"

// Command 控制指令，在仿真步边界生效
type Command int32

const (
	CommandTogglePause Command = iota // 暂停/继续切换
	CommandPause                      // 暂停
	CommandResume                     // 继续
	CommandReset                      // 重置信号机与所有车辆
	CommandSkip                       // 立即结束当前绿灯（进入黄灯）
	CommandTerminate                  // 结束仿真
)

func (c Command) String() string {
	switch c {
	case CommandTogglePause:
		return "toggle-pause"
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandReset:
		return "reset"
	case CommandSkip:
		return "skip"
	case CommandTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("Command(%d)", int32(c))
	}
}
