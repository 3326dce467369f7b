// 终端控制台：按键提交控制指令，定时把最近发布的快照绘制为文字界面
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/gdamore/tcell/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
)

// 默认刷新间隔
const defaultRefresh = 100 * time.Millisecond

// 队列条形图最多绘制的车辆数
const maxBar = 30

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleHeader  = styleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleHint    = styleDefault.Foreground(tcell.ColorGray)
	stylePaused  = styleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleWarning = styleDefault.Foreground(tcell.ColorYellow)
	styleLights  = map[mapv2.LightState]tcell.Style{
		mapv2.LightState_LIGHT_STATE_GREEN:  styleDefault.Foreground(tcell.ColorLime).Bold(true),
		mapv2.LightState_LIGHT_STATE_YELLOW: styleDefault.Foreground(tcell.ColorYellow).Bold(true),
		mapv2.LightState_LIGHT_STATE_RED:    styleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
)

// Console 终端控制台
// 功能：SPACE暂停/继续，R重置，N跳过当前绿灯，ESC/Q结束仿真
// 说明：只通过Published读取快照、通过Submit提交指令，不直接访问仿真状态
type Console struct {
	screen  tcell.Screen
	sim     entity.ISimulation
	refresh time.Duration
}

// New 创建控制台，screen需要已经完成Init
func New(screen tcell.Screen, sim entity.ISimulation) *Console {
	screen.SetStyle(styleDefault)
	return &Console{screen: screen, sim: sim, refresh: defaultRefresh}
}

// Run 处理按键并定时刷新界面
// 返回：收到结束按键或ctx取消时返回
func (c *Console) Run(ctx context.Context) {
	events := make(chan tcell.Event)
	quit := make(chan struct{})
	defer close(quit)
	go c.screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()
	c.Render()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				c.screen.Sync()
			case *tcell.EventKey:
				if !c.HandleKey(ev) {
					return
				}
			}
			c.Render()
		case <-ticker.C:
			c.Render()
		}
	}
}

// HandleKey 把按键转换为控制指令
// 返回：false表示用户要求结束
func (c *Console) HandleKey(ev *tcell.EventKey) bool {
	var cmd entity.Command
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		cmd = entity.CommandTerminate
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			cmd = entity.CommandTogglePause
		case 'r', 'R':
			cmd = entity.CommandReset
		case 'n', 'N':
			cmd = entity.CommandSkip
		case 'q', 'Q':
			cmd = entity.CommandTerminate
		default:
			return true
		}
	default:
		return true
	}
	if !c.sim.Submit(cmd) {
		log.Warnf("command %v rejected", cmd)
	}
	return cmd != entity.CommandTerminate
}

// drawText 从(x, y)开始写一行文字，返回写入后的横坐标
func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func lightName(l mapv2.LightState) string {
	switch l {
	case mapv2.LightState_LIGHT_STATE_GREEN:
		return "GREEN"
	case mapv2.LightState_LIGHT_STATE_YELLOW:
		return "AMBER"
	default:
		return "RED"
	}
}

// Render 绘制最近一次发布的快照
func (c *Console) Render() {
	s := c.screen
	s.Clear()
	snapshot := c.sim.Published()
	if snapshot == nil {
		drawText(s, 1, 1, "waiting for simulation ...", styleHint)
		s.Show()
		return
	}
	y := 0
	h, m := int(snapshot.T)/3600, int(snapshot.T)%3600/60
	x := drawText(s, 1, y, fmt.Sprintf("ADAPTIVE SIGNAL  run %s  step %d  t=%02d:%02d:%05.2f",
		snapshot.RunID, snapshot.Step, h, m, snapshot.T-float64(h*3600+m*60)), styleHeader)
	if snapshot.Paused {
		drawText(s, x+2, y, " PAUSED ", stylePaused)
	}
	y += 2

	sig := snapshot.Signal
	drawText(s, 1, y, fmt.Sprintf("cycle %d  phase %d  %-7v %5.1fs / %5.1fs  next phase %d",
		sig.Cycle, sig.PhaseIndex, sig.Sub, sig.Remaining, sig.Total, snapshot.NextPhase), styleDefault)
	y++
	for i, p := range snapshot.Phases {
		style := styleDefault
		if i == sig.PhaseIndex && sig.Sub != entity.SubStateAllRed {
			style = styleLights[sig.Light(true)]
		}
		drawText(s, 3, y, fmt.Sprintf("P%d %-24s green %5.1fs  load %6.1f",
			i, strings.Join(p.Approaches, ","), p.Green, p.Load), style)
		y++
	}
	y++

	drawText(s, 1, y, fmt.Sprintf("%-8s %-6s %6s %8s %9s %10s %8s  %s",
		"approach", "light", "queue", "waiting", "released", "throughput", "spawned", "load(car/bus/truck)"), styleHint)
	y++
	for _, a := range snapshot.Approaches {
		x := drawText(s, 1, y, fmt.Sprintf("%-8s ", a.ID), styleDefault)
		x = drawText(s, x, y, fmt.Sprintf("%-6s", lightName(a.Light)), styleLights[a.Light])
		drawText(s, x, y, fmt.Sprintf(" %6d %8d %9d %10d %8d  %d/%d/%d",
			a.QueueLength, a.Waiting, a.Released, a.Throughput, a.Spawned,
			a.Load[entity.VehicleClassCar], a.Load[entity.VehicleClassBus], a.Load[entity.VehicleClassTruck]), styleDefault)
		y++
		bar := strings.Repeat("#", int(lo.Min([]int32{a.QueueLength, maxBar})))
		if a.QueueLength > maxBar {
			bar += "+"
		}
		x = drawText(s, 3, y, "|", styleLights[a.Light])
		drawText(s, x, y, bar, styleDefault)
		y++
	}
	y++

	drawText(s, 1, y, fmt.Sprintf("throughput %d (%.1f veh/min)  spawned %d  waiting %d  on road %d",
		snapshot.Throughput, snapshot.ThroughputPerMinute, snapshot.Spawned, snapshot.Waiting, len(snapshot.Vehicles)), styleDefault)
	y++
	load := snapshot.Load
	if load.Source != "" {
		style := styleHint
		text := fmt.Sprintf("load %s seq %d total %d", load.Source, load.Seq, load.Total())
		if load.Degraded {
			style = styleWarning
			text += " (degraded)"
		}
		drawText(s, 1, y, text, style)
	}
	y += 2
	drawText(s, 1, y, "SPACE pause/resume   R reset   N skip phase   ESC/Q quit", styleHint)
	s.Show()
}
