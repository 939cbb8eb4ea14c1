package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/marginalia/errors"
	"github.com/ByLCY/marginalia/fonts"
	"github.com/ByLCY/marginalia/layout"
	"github.com/ByLCY/marginalia/renderer"
)

// defaultResolution 约为 96 DPI，使 PNG 中 1px 布局单位对应 1 个像素。
const defaultResolution = 96 / 25.4

// Renderer draws layout results via github.com/tdewolff/canvas.
// Layout coordinates are px; the canvas works in mm, conversion happens at the boundary.
type Renderer struct {
	font       string
	textColor  color.Color
	background color.Color
	resolution float64

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	// Font is a TTF/OTF path or fonts.Builtin; empty means the built-in monospace font.
	Font string
	// TextColor defaults to near-black.
	TextColor color.Color
	// Background defaults to white; use color.Transparent for none.
	Background color.Color
	// Resolution in dots per mm for PNG output.
	Resolution float64
}

// NewRenderer creates a renderer using the built-in monospace font.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with the given font and colors.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		font:       opts.Font,
		textColor:  opts.TextColor,
		background: opts.Background,
		resolution: opts.Resolution,
	}
	if r.textColor == nil {
		r.textColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	}
	if r.background == nil {
		r.background = color.White
	}
	if r.resolution <= 0 {
		r.resolution = defaultResolution
	}
	return r
}

// Render renders the result into the requested format.
func (r *Renderer) Render(result *layout.Result, format renderer.Format) ([]byte, error) {
	if result == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "渲染结果为空")
	}
	c, err := r.draw(result)
	if err != nil {
		return nil, err
	}
	width, height := toMm(result.Bounds.Width), toMm(result.Bounds.Height)

	var buf bytes.Buffer
	switch format {
	case renderer.FormatPDF:
		writer := pdf.New(&buf, width, height, nil)
		r.applyMeta(writer, result.Meta)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "写入 PDF 失败")
		}
	case renderer.FormatSVG:
		writer := svg.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "写入 SVG 失败")
		}
	case renderer.FormatPNG:
		if err := renderers.PNG(canvas.DPMM(r.resolution))(&buf, c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "写入 PNG 失败")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "不支持的输出格式 %q", format)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// CharWidth 实现 layout.Typesetter：以 "M" 的前进宽度作为等宽字符宽度。
// fontSize 与返回值均为 px。
func (r *Renderer) CharWidth(fontSize float64) (float64, error) {
	face, err := r.fontFace(fontSize, r.textColor)
	if err != nil {
		return 0, err
	}
	return toPx(face.TextWidth("M")), nil
}

func (r *Renderer) draw(result *layout.Result) (*canvas.Canvas, error) {
	b := result.Bounds
	width, height := toMm(b.Width), toMm(b.Height)
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	ctx.SetFillColor(r.background)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(0, 0, canvas.Rectangle(width, height))

	// 布局坐标的原点在文字区域左上角，画布原点在 Bounds 左上角
	origin := layout.Point{X: -b.X, Y: -b.Y}

	if err := r.drawText(ctx, result, origin); err != nil {
		return nil, err
	}
	r.drawSegments(ctx, result.Segments, result.Options.SvgWidth, origin)
	r.drawPolylines(ctx, result.Polylines, result.Options.SvgWidth, origin)
	return c, nil
}

// drawText 逐字符放到字符格中，保证与布局使用的字宽一致。
func (r *Renderer) drawText(ctx *canvas.Context, result *layout.Result, origin layout.Point) error {
	face, err := r.fontFace(result.Options.FontSize, r.textColor)
	if err != nil {
		return err
	}
	metrics := face.Metrics()
	cw := result.Metrics.CharWidth
	for _, line := range result.Lines {
		// 行中线换算为基线：上升部与下降部之差的一半
		baseline := toMm(origin.Y+line.Y) + (metrics.Ascent-metrics.Descent)/2
		for i, ch := range []rune(line.Content) {
			if ch == ' ' || ch == '\t' {
				continue
			}
			x := toMm(origin.X + float64(i)*cw)
			ctx.DrawText(x, baseline, canvas.NewTextLine(face, string(ch), canvas.Left))
		}
	}
	return nil
}

// drawSegments 绘制批注下划线（px → mm）
func (r *Renderer) drawSegments(ctx *canvas.Context, segments []layout.Segment, strokeWidth float64, origin layout.Point) {
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeWidth(toMm(strokeWidth))
	for _, seg := range segments {
		ctx.SetStrokeColor(colorFromLayout(seg.Color))
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(toMm(seg.X2-seg.X1), toMm(seg.Y2-seg.Y1))
		ctx.DrawPath(toMm(origin.X+seg.X1), toMm(origin.Y+seg.Y1), p)
	}
}

// drawPolylines 绘制关系折线与箭头
func (r *Renderer) drawPolylines(ctx *canvas.Context, polylines []layout.Polyline, strokeWidth float64, origin layout.Point) {
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeWidth(toMm(strokeWidth))
	ctx.SetStrokeJoiner(canvas.RoundJoin)
	for _, pl := range polylines {
		if len(pl.Points) < 2 {
			continue
		}
		ctx.SetStrokeColor(colorFromLayout(pl.Color))
		start := pl.Points[0]
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		for _, pt := range pl.Points[1:] {
			p.LineTo(toMm(pt.X-start.X), toMm(pt.Y-start.Y))
		}
		ctx.DrawPath(toMm(origin.X+start.X), toMm(origin.Y+start.Y), p)
	}
}

func (r *Renderer) fontFace(sizePx float64, col color.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily()
	if err != nil {
		return nil, err
	}
	return family.Face(sizePx*layout.PxToPt, col, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if r.family != nil {
		return r.family, nil
	}
	data, err := fonts.Load(r.font)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "加载字体失败")
	}
	family := canvas.NewFontFamily("marginalia-mono")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "解析字体 %s 失败", fontName(r.font))
	}
	r.family = family
	return family, nil
}

func fontName(src string) string {
	if src == "" {
		return fonts.Builtin
	}
	return src
}

func colorFromLayout(value string) color.Color {
	c := layout.MustColor(value)
	return color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 255}
}

func toMm(px float64) float64 { return px * layout.PxToMm }

func toPx(mm float64) float64 { return mm * layout.MmToPx }

// String 便于日志输出。
func (r *Renderer) String() string {
	return fmt.Sprintf("canvas(font=%s, %.2f dpmm)", fontName(r.font), r.resolution)
}
