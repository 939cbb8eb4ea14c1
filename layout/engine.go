package layout

import (
	"fmt"
	"slices"

	"github.com/ByLCY/marginalia/errors"
)

// Input 是一次布局的全部输入，调用期间视为不可变快照。
type Input struct {
	Text        string
	Annotations []AnnotationGroup
	Relations   []RelationGroup
	Options     UIOptions
	Meta        DocumentMeta
}

// Engine 记住上一次的折行结果，相同 (文本, 宽度, 字宽) 时直接复用。
// 缓存只影响性能，不影响结果。Engine 不可并发使用。
type Engine struct {
	last struct {
		text      string
		width     float64
		charWidth float64
		breaks    LineBreaks
		ok        bool
	}
}

// NewEngine 创建带折行缓存的布局引擎。
func NewEngine() *Engine { return &Engine{} }

// Compute 使用一次性引擎完成布局。
func Compute(in Input, opts BuildOptions) (*Result, error) {
	return NewEngine().Compute(in, opts)
}

// Compute 依次完成折行、批注与关系的补全、尺寸推导与图元生成。
func (e *Engine) Compute(in Input, opts BuildOptions) (*Result, error) {
	ui := DefaultUIOptions().Merge(in.Options).Merge(opts.UI)
	if err := ui.Validate(); err != nil {
		return nil, err
	}
	charWidth, err := resolveCharWidth(ui, opts.Typesetter)
	if err != nil {
		return nil, err
	}
	ui.CharWidth = charWidth

	text := []rune(in.Text)
	if err := ValidateSpans(len(text), in.Annotations, in.Relations); err != nil {
		return nil, err
	}

	annotations, relations, _ := AssignDefaultColors(in.Annotations, in.Relations, 0)
	legend := buildLegend(annotations, relations, opts.Hidden)
	annotations = visibleAnnotations(annotations, opts.Hidden)
	relations = visibleRelations(relations, opts.Hidden)

	lb := e.lineBreaks(text, ui.ContainerWidth, charWidth)
	enrichedA, annStack := enrichAnnotations(annotations, lb)
	enrichedR, relStack := enrichRelations(relations, lb)

	metrics := ComputeMetrics(ui, charWidth, annStack.height(), relStack.height())
	m := Mapper{Options: ui, Metrics: metrics}

	lines := splitLines(text, lb)
	for i := range lines {
		lines[i].Y = m.LineCenterY(i)
	}

	res := &Result{
		Text:             in.Text,
		LineBreaks:       lb,
		Lines:            lines,
		Options:          ui,
		Metrics:          metrics,
		Annotations:      enrichedA,
		Relations:        enrichedR,
		AnnotationsStack: annStack.height(),
		RelationsStack:   relStack.height(),
		Segments:         AnnotationSegments(enrichedA, lb, m),
		Polylines:        RelationPolylines(enrichedR, m),
		Bounds: Bounds{
			X:      -metrics.SvgPadding,
			Y:      -metrics.SvgPadding,
			Width:  ui.ContainerWidth + 2*metrics.SvgPadding,
			Height: float64(len(lb))*metrics.CharHeight + 2*metrics.SvgPadding,
		},
		Legend: legend,
		Meta:   in.Meta,
	}
	if opts.ScrollTo != nil {
		target := *opts.ScrollTo
		if target < 0 {
			res.ScrollY = res.ScrollToFirstAnnotation()
		} else {
			res.ScrollY = res.ScrollToChar(target)
		}
	}
	if opts.Debug.Lanes {
		res.Debug = &LayoutDebug{
			AnnotationLanes: annStack.lanes,
			RelationLanes:   relStack.lanes,
		}
	}
	return res, nil
}

func (e *Engine) lineBreaks(text []rune, width, charWidth float64) LineBreaks {
	s := string(text)
	if e.last.ok && e.last.text == s && e.last.width == width && e.last.charWidth == charWidth {
		return slices.Clone(e.last.breaks)
	}
	lb := ComputeLineBreaks(text, width, charWidth)
	e.last.text, e.last.width, e.last.charWidth = s, width, charWidth
	e.last.breaks, e.last.ok = slices.Clone(lb), true
	return lb
}

func resolveCharWidth(ui UIOptions, ts Typesetter) (float64, error) {
	if ui.CharWidth > 0 {
		return ui.CharWidth, nil
	}
	if ts != nil {
		w, err := ts.CharWidth(ui.FontSize)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInternal, err, "测量字符宽度失败")
		}
		if w > 0 {
			return w, nil
		}
	}
	return ui.FontSize / 2, nil
}

// ScrollToChar 返回把 offset 所在行的上一行顶到视口顶部时的 y。
func (r *Result) ScrollToChar(offset int) *float64 {
	if r == nil {
		return nil
	}
	line, _ := r.LineBreaks.Position(offset)
	y := r.Mapper().LineToY(line-1, 0, Below)
	return &y
}

// ScrollToFirstAnnotation 滚动到起点最小的批注，没有批注时返回 nil。
func (r *Result) ScrollToFirstAnnotation() *float64 {
	if r == nil || len(r.Annotations) == 0 {
		return nil
	}
	first := r.Annotations[0].Span.Start
	for _, a := range r.Annotations[1:] {
		first = min(first, a.Span.Start)
	}
	return r.ScrollToChar(first)
}

// Summary 返回一行概要，供 CLI 日志使用。
func (r *Result) Summary() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d lines, %d annotations (%d lanes), %d relations (%d lanes), %.0fx%.0fpx",
		len(r.Lines), len(r.Annotations), r.AnnotationsStack, len(r.Relations), r.RelationsStack,
		r.Bounds.Width, r.Bounds.Height)
}

func buildLegend(annotations []AnnotationGroup, relations []RelationGroup, hidden map[string]bool) []LegendEntry {
	out := make([]LegendEntry, 0, len(annotations)+len(relations))
	for _, g := range annotations {
		out = append(out, LegendEntry{Key: g.Key, Name: displayName(g.Key, g.Name), Color: g.Color, Kind: "annotation", Count: len(g.Values), Hidden: hidden[g.Key]})
	}
	for _, g := range relations {
		out = append(out, LegendEntry{Key: g.Key, Name: displayName(g.Key, g.Name), Color: g.Color, Kind: "relation", Count: len(g.Values), Hidden: hidden[g.Key]})
	}
	return out
}

func displayName(key, name string) string {
	if name != "" {
		return name
	}
	return key
}

func visibleAnnotations(groups []AnnotationGroup, hidden map[string]bool) []AnnotationGroup {
	if len(hidden) == 0 {
		return groups
	}
	out := make([]AnnotationGroup, 0, len(groups))
	for _, g := range groups {
		if !hidden[g.Key] {
			out = append(out, g)
		}
	}
	return out
}

func visibleRelations(groups []RelationGroup, hidden map[string]bool) []RelationGroup {
	if len(hidden) == 0 {
		return groups
	}
	out := make([]RelationGroup, 0, len(groups))
	for _, g := range groups {
		if !hidden[g.Key] {
			out = append(out, g)
		}
	}
	return out
}
