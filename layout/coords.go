package layout

import "math"

// Direction 区分文字下方的批注（Below）与上方的关系（Above）。
type Direction int

const (
	Below Direction = 1
	Above Direction = -1
)

// 吸收浮点误差，保证 YToLine(LineToY(l, k, d), d) 精确还原。
const coordEpsilon = 1e-9

// ComputeMetrics 由绘制参数、字符宽度与两类泳道数推导尺寸。
// 批注泳道在行下方、关系泳道在下一行上方，二者共享行间空间，故总高度取两者之和。
func ComputeMetrics(o UIOptions, charWidth float64, annotationsStack, relationsStack int) Metrics {
	if charWidth <= 0 {
		charWidth = o.FontSize / 2
	}
	svgSpace := o.SvgWidth + o.SpaceBetweenSvgs
	stack := annotationsStack + relationsStack
	charHeight := o.FontSize + o.SpaceBetweenTextAndSvg + svgSpace*float64(stack) + o.SpaceBeforeNextLine
	return Metrics{
		CharWidth:   charWidth,
		CharHeight:  charHeight,
		LineHeight:  charHeight / o.FontSize,
		SvgSpace:    svgSpace,
		SvgPadding:  o.DefaultSvgPadding + float64(relationsStack)*svgSpace,
		StackHeight: stack,
	}
}

// Mapper 在码点、行与像素坐标之间转换，无状态。
type Mapper struct {
	Options UIOptions
	Metrics Metrics
}

// CharOffsetToX 返回行内偏移对应的 x。
func (m Mapper) CharOffsetToX(offset float64) float64 {
	return offset * m.Metrics.CharWidth
}

// XToCharOffset 向下取整求 x 所在的字符格。
func (m Mapper) XToCharOffset(x float64) int {
	return int(math.Floor(x / m.Metrics.CharWidth))
}

func (m Mapper) base() float64 {
	return m.Options.FontSize/2 + m.Options.SpaceBetweenTextAndSvg
}

// LineToY 返回第 line 行第 lane 条泳道的 y，Below 在文字下方，Above 在文字上方。
func (m Mapper) LineToY(line, lane int, d Direction) float64 {
	return (float64(line)+0.5)*m.Metrics.CharHeight + float64(d)*(m.base()+float64(lane)*m.Metrics.SvgSpace)
}

// YToLine 是 LineToY 的逆：泳道的命中带为线条本身，带宽为一个 SvgSpace，
// 起点比线条中心上移半个线宽。
func (m Mapper) YToLine(y float64, d Direction) (line, lane int) {
	ch := m.Metrics.CharHeight
	halfStroke := m.Options.SvgWidth / 2
	sign := float64(d)
	q := (y-sign*(m.base()-halfStroke))/ch - 0.5
	if d == Below {
		line = int(math.Floor(q + coordEpsilon))
	} else {
		line = int(math.Ceil(q - coordEpsilon))
	}
	residual := sign*(y-(float64(line)+0.5)*ch) - m.base() + halfStroke
	lane = int(math.Floor(residual/m.Metrics.SvgSpace + coordEpsilon))
	return line, lane
}

// LineCenterY 返回第 line 行文字中线的 y。
func (m Mapper) LineCenterY(line int) float64 {
	return (float64(line) + 0.5) * m.Metrics.CharHeight
}

// GutterX 返回跨行关系在第 lane 条泳道上的左侧走线 x（负数）。
func (m Mapper) GutterX(lane int) float64 {
	return -(m.Options.RelationHorizontalOffset + float64(lane)*m.Metrics.SvgSpace)
}
