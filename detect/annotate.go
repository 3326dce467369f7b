package detect

import (
	"fmt"
	"image"
	"image/color"

	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	lineWidth    = 2  // 检测框线宽（像素）
	bannerHeight = 20 // 顶部统计栏高度（像素）
)

var (
	classColors = [entity.NumVehicleClasses]color.RGBA{
		entity.VehicleClassCar:   {R: 0, G: 200, B: 0, A: 255},
		entity.VehicleClassBus:   {R: 0, G: 120, B: 255, A: 255},
		entity.VehicleClassTruck: {R: 255, G: 140, B: 0, A: 255},
	}
	bannerColor = color.RGBA{R: 0, G: 0, B: 0, A: 160}
	textColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotate 在图像上绘制检测框与分车型统计
// 功能：复制原图，为每个达到置信度阈值的car/bus/truck检测框绘制彩色边框与标签，并在顶部绘制统计栏
// 参数：src-原图，dets-检测框，minConfidence-置信度阈值
// 返回：标注后的新图像，原图不变
func Annotate(src image.Image, dets []Detection, minConfidence float64) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	for _, d := range dets {
		if d.Confidence < minConfidence {
			continue
		}
		class, ok := entity.ParseVehicleClass(d.Class)
		if !ok {
			continue
		}
		r := image.Rect(int(d.Box[0]), int(d.Box[1]), int(d.Box[2]), int(d.Box[3])).Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		col := classColors[class]
		drawRect(dst, r, col)
		drawLabel(dst, r.Min, fmt.Sprintf("%v %.2f", class, d.Confidence), col)
	}

	counts := Count(dets, minConfidence)
	banner := image.Rect(0, 0, dst.Bounds().Dx(), bannerHeight).Intersect(dst.Bounds())
	draw.Draw(dst, banner, image.NewUniform(bannerColor), image.Point{}, draw.Over)
	drawText(dst, image.Pt(4, 14), fmt.Sprintf("%v  total=%d", counts, counts.Total()), textColor)
	return dst
}

// drawRect 绘制矩形边框
func drawRect(dst draw.Image, r image.Rectangle, col color.Color) {
	u := image.NewUniform(col)
	w := min(lineWidth, r.Dx(), r.Dy())
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), // 上
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), // 下
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), // 左
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), // 右
	} {
		draw.Draw(dst, edge, u, image.Point{}, draw.Src)
	}
}

// drawLabel 在检测框左上角绘制带底色的标签，空间不足时画在框内
func drawLabel(dst draw.Image, at image.Point, label string, bg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()
	height := face.Metrics().Height.Ceil()
	top := at.Y - height
	if top < bannerHeight {
		top = at.Y
	}
	box := image.Rect(at.X, top, at.X+width+4, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)
	drawText(dst, image.Pt(at.X+2, top+face.Metrics().Ascent.Ceil()), label, textColor)
}

// drawText 以基线位置绘制文字
func drawText(dst draw.Image, baseline image.Point, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(baseline.X, baseline.Y),
	}
	d.DrawString(text)
}
