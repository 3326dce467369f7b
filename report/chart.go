package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoData = errors.New("report: nothing recorded")

const (
	htmlName    = "report.html"
	pngName     = "queues.png"
	summaryName = "summary.yaml"
)

func phaseName(i int, approaches []string) string {
	return fmt.Sprintf("P%d(%s)", i, strings.Join(approaches, ","))
}

// WriteHTML 输出HTML报告
// 功能：第一张图为每个周期各相位的绿灯时间，第二张图为每个周期各相位的加权负载
func (r *Recorder) WriteHTML(w io.Writer) error {
	cycles := r.Cycles()
	r.mtx.Lock()
	phases := r.phases
	r.mtx.Unlock()
	if len(cycles) == 0 || len(phases) == 0 {
		return ErrNoData
	}
	x := lo.Map(cycles, func(c CycleRecord, _ int) string { return fmt.Sprint(c.Cycle) })

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Adaptive signal", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Green time per cycle", Subtitle: fmt.Sprintf("cycles=%d", len(cycles))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "cycle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "green (s)"}),
	)
	bar.SetXAxis(x)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Weighted load per cycle"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "cycle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "load"}),
	)
	line.SetXAxis(x)
	for i, approaches := range phases {
		name := phaseName(i, approaches)
		bar.AddSeries(name, lo.Map(cycles, func(c CycleRecord, _ int) opts.BarData {
			return opts.BarData{Value: c.Greens[i]}
		}))
		line.AddSeries(name, lo.Map(cycles, func(c CycleRecord, _ int) opts.LineData {
			return opts.LineData{Value: c.Loads[i]}
		}))
	}

	page := components.NewPage()
	page.AddCharts(bar, line)
	return page.Render(w)
}

// WritePNG 输出各进口道排队长度随时间变化的曲线
// 参数：path-输出文件路径，width/height-图片尺寸
func (r *Recorder) WritePNG(path string, width, height vg.Length) error {
	samples := r.Samples()
	approaches := r.Approaches()
	if len(samples) == 0 || len(approaches) == 0 {
		return ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Queue length per approach"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Vehicles"
	for i, id := range approaches {
		pts := make(plotter.XYs, len(samples))
		for j, s := range samples {
			pts[j] = plotter.XY{X: s.T, Y: float64(s.Queues[i])}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(id, l)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p.Save(width, height, path)
}

// WriteAll 在目录中输出HTML报告、PNG曲线与YAML摘要
// 说明：没有任何周期或采样时跳过对应的文件
func (r *Recorder) WriteAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var errs []error
	if f, err := os.Create(filepath.Join(dir, htmlName)); err != nil {
		errs = append(errs, err)
	} else {
		err = r.WriteHTML(f)
		if errors.Is(err, ErrNoData) {
			log.Warn("no cycle recorded, skip html report")
			err = nil
		}
		errs = append(errs, err, f.Close())
	}
	if err := r.WritePNG(filepath.Join(dir, pngName), 14*vg.Inch, 6*vg.Inch); errors.Is(err, ErrNoData) {
		log.Warn("no sample recorded, skip queue plot")
	} else {
		errs = append(errs, err)
	}
	if f, err := os.Create(filepath.Join(dir, summaryName)); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, r.WriteSummary(f), f.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("write report to %s: %w", dir, err)
	}
	log.Infof("report written to %s", dir)
	return nil
}
