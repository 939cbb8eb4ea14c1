package layout

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/marginalia/errors"
)

func sampleAnnotations() []AnnotationGroup {
	return []AnnotationGroup{
		{Key: "diagnosis", Name: "Diagnosis", Values: []Span{{9, 12}, {22, 25}, {27, 30}, {32, 38}, {43, 46}}},
		{Key: "time", Values: []Span{{61, 68}, {93, 112}}},
		{Key: "medication_name", Values: []Span{{50, 56}}},
		{Key: "symptom_or_sign", Values: []Span{{118, 129}, {134, 152}}},
	}
}

func sampleRelations() []RelationGroup {
	return []RelationGroup{
		{Key: "time_of", Directional: true, Values: []RelationSpan{{50, 56, 61, 68}, {93, 112, 118, 129}}},
	}
}

func computeSample(t *testing.T, width float64) *Result {
	t.Helper()
	res, err := Compute(Input{
		Text:        sampleText,
		Annotations: sampleAnnotations(),
		Relations:   sampleRelations(),
	}, BuildOptions{UI: UIOptions{ContainerWidth: width, CharWidth: 10}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return res
}

func TestSingleLineDiagnosisScenario(t *testing.T) {
	lb := ComputeLineBreaks([]rune(sampleText), 2000, 10)
	if len(lb) != 1 {
		t.Fatalf("expected a single line, got %v", lb)
	}
	groups := []AnnotationGroup{{Key: "diagnosis", Values: []Span{{Start: 9, End: 12}, {Start: 22, End: 25}}}}
	got, stack := EnrichAnnotations(groups, lb)
	if stack != 1 {
		t.Fatalf("stackHeight = %d, want 1", stack)
	}
	want := []LinePosition{
		{StartLine: 0, EndLine: 0, StartCharOffset: 9, EndCharOffset: 12},
		{StartLine: 0, EndLine: 0, StartCharOffset: 22, EndCharOffset: 25},
	}
	for i, a := range got {
		if diff := cmp.Diff(want[i], a.Position); diff != "" {
			t.Fatalf("annotation %d position mismatch (-want +got):\n%s", i, diff)
		}
		if a.VerticalOffset != 0 {
			t.Fatalf("annotation %d lane = %d, want 0", i, a.VerticalOffset)
		}
	}
}

func TestOverlappingSpansStack(t *testing.T) {
	lb := ComputeLineBreaks([]rune(sampleText), 2000, 10)
	groups := []AnnotationGroup{{Key: "g", Values: []Span{{5, 20}, {10, 15}}}}
	got, stack := EnrichAnnotations(groups, lb)
	if stack != 2 {
		t.Fatalf("stackHeight = %d, want 2", stack)
	}
	if got[0].VerticalOffset != 0 || got[1].VerticalOffset != 1 {
		t.Fatalf("lanes = %d,%d, want 0,1", got[0].VerticalOffset, got[1].VerticalOffset)
	}
}

func TestLaneAssignmentFollowsInputOrder(t *testing.T) {
	lb := LineBreaks{99}
	groups := []AnnotationGroup{{Key: "g", Values: []Span{{0, 10}, {5, 6}, {20, 30}, {7, 25}, {10, 10}}}}
	got, stack := EnrichAnnotations(groups, lb)
	lanes := make([]int, len(got))
	for i, a := range got {
		lanes[i] = a.VerticalOffset
	}
	// 闭区间：{10,10} 同时与 {0,10} 和 {7,25} 相交
	if diff := cmp.Diff([]int{0, 1, 0, 1, 2}, lanes); diff != "" {
		t.Fatalf("lanes mismatch (-want +got):\n%s", diff)
	}
	if stack != 3 {
		t.Fatalf("stackHeight = %d, want 3", stack)
	}
	again, _ := EnrichAnnotations(groups, lb)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Fatalf("enrichment not deterministic:\n%s", diff)
	}
}

func TestSameLineRelationAnchors(t *testing.T) {
	res := computeSample(t, 2000)
	rel := res.Relations[0]
	want := Arrow{FromLine: 0, FromChar: 53, ToLine: 0, ToChar: 64.5}
	if diff := cmp.Diff(want, rel.Arrow); diff != "" {
		t.Fatalf("arrow mismatch (-want +got):\n%s", diff)
	}

	m := res.Mapper()
	y := m.LineToY(0, 0, Above)
	lead := res.Options.RelationVerticalOffset
	wantPoints := []Point{
		{530, y + lead}, {530, y}, {645, y}, {645, y + lead},
		{651, y + lead - 3}, {645, y + lead}, {639, y + lead - 3}, {645, y + lead},
	}
	if diff := cmp.Diff(wantPoints, res.Polylines[0].Points); diff != "" {
		t.Fatalf("polyline mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiLineRelationUsesGutter(t *testing.T) {
	res := computeSample(t, 400)
	rel := res.Relations[1]
	want := Arrow{FromLine: 2, FromChar: 22.5, ToLine: 3, ToChar: 5.5}
	if diff := cmp.Diff(want, rel.Arrow); diff != "" {
		t.Fatalf("arrow mismatch (-want +got):\n%s", diff)
	}
	pts := res.Polylines[1].Points
	m := res.Mapper()
	gx := m.GutterX(rel.VerticalOffset)
	if gx != -5 {
		t.Fatalf("gutter x = %g, want -5", gx)
	}
	if pts[2].X != gx || pts[3].X != gx {
		t.Fatalf("expected gutter corners at x=%g, got %+v", gx, pts[2:4])
	}
	if pts[2].Y != m.LineToY(2, 0, Above) || pts[3].Y != m.LineToY(3, 0, Above) {
		t.Fatalf("gutter corners on wrong lines: %+v", pts[2:4])
	}
	if len(pts) != 10 {
		t.Fatalf("directional multi-line relation should have 10 points, got %d", len(pts))
	}
}

func TestMultiLineAnchorUsesWrapEdge(t *testing.T) {
	lb := LineBreaks{9, 19}
	from := lb.SpanPosition(Span{Start: 6, End: 13})
	to := lb.SpanPosition(Span{Start: 15, End: 17})
	a := ResolveArrow(from, to, lb)
	// 起点跨行：(6 + 10) / 2
	if a.FromLine != 0 || a.FromChar != 8 {
		t.Fatalf("from anchor = (%d, %g), want (0, 8)", a.FromLine, a.FromChar)
	}
	if a.ToLine != 1 || a.ToChar != 6 {
		t.Fatalf("to anchor = (%d, %g), want (1, 6)", a.ToLine, a.ToChar)
	}
}

func TestAnnotationSegmentsPerLine(t *testing.T) {
	res := computeSample(t, 250)
	var segs []Segment
	for _, s := range res.Segments {
		if s.Key == "symptom_or_sign" {
			segs = append(segs, s)
		}
	}
	// {118,129} 在第 5 行，{134,152} 跨第 5、6 行
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
	last := segs[1]
	if last.Line != 5 || last.X1 != 160 || last.X2 != float64(res.LineBreaks.LineLength(5)-1)*10 {
		t.Fatalf("unexpected first-line segment: %+v", last)
	}
	if segs[2].Line != 6 || segs[2].X1 != 0 || segs[2].X2 != 90 {
		t.Fatalf("unexpected last-line segment: %+v", segs[2])
	}
	if segs[1].Y1 != segs[2].Y1-res.Metrics.CharHeight {
		t.Fatalf("segments of one annotation should share the lane offset")
	}
	if segs[0].Color != Palette[3] {
		t.Fatalf("segment color = %s, want %s", segs[0].Color, Palette[3])
	}
}

func TestMapperRoundTrip(t *testing.T) {
	for _, stacks := range [][2]int{{0, 0}, {1, 1}, {3, 2}, {0, 4}, {6, 0}} {
		ui := DefaultUIOptions()
		m := Mapper{Options: ui, Metrics: ComputeMetrics(ui, 10, stacks[0], stacks[1])}
		for line := 0; line < 20; line++ {
			for lane := 0; lane < max(stacks[0], stacks[1], 1); lane++ {
				for _, d := range []Direction{Below, Above} {
					y := m.LineToY(line, lane, d)
					gotLine, gotLane := m.YToLine(y, d)
					if gotLine != line || gotLane != lane {
						t.Fatalf("stacks %v: YToLine(LineToY(%d, %d, %d)) = (%d, %d)", stacks, line, lane, d, gotLine, gotLane)
					}
				}
			}
		}
		for i := 0; i < 1280; i++ {
			x := float64(i) / 2
			back := m.CharOffsetToX(float64(m.XToCharOffset(x)))
			if x-back < 0 || x-back >= m.Metrics.CharWidth {
				t.Fatalf("x=%g maps back to %g", x, back)
			}
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	got := ComputeMetrics(DefaultUIOptions(), 0, 2, 1)
	want := Metrics{
		CharWidth:   10,
		CharHeight:  20 + 6 + 5*3 + 10,
		LineHeight:  51.0 / 20,
		SvgSpace:    5,
		SvgPadding:  15,
		StackHeight: 3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestNoCollisionInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	text := []rune(sampleText)
	for round := 0; round < 50; round++ {
		var spans []Span
		var rels []RelationSpan
		for i := 0; i < 30; i++ {
			s := r.IntN(len(text))
			spans = append(spans, Span{Start: s, End: min(len(text), s+r.IntN(40))})
			fs := r.IntN(len(text))
			ts := r.IntN(len(text))
			rels = append(rels, RelationSpan{FromStart: fs, FromEnd: min(len(text), fs+r.IntN(20)), ToStart: ts, ToEnd: min(len(text), ts+r.IntN(20))})
		}
		lb := ComputeLineBreaks(text, float64(60+r.IntN(400)), 10)
		anns, _ := EnrichAnnotations([]AnnotationGroup{{Key: "a", Values: spans}}, lb)
		for i := range anns {
			for j := i + 1; j < len(anns); j++ {
				a, b := anns[i], anns[j]
				if a.VerticalOffset == b.VerticalOffset && !(a.Span.End < b.Span.Start || a.Span.Start > b.Span.End) {
					t.Fatalf("annotations %v and %v share lane %d", a.Span, b.Span, a.VerticalOffset)
				}
			}
		}
		enriched, _ := EnrichRelations([]RelationGroup{{Key: "r", Values: rels}}, lb)
		for i := range enriched {
			for j := i + 1; j < len(enriched); j++ {
				a, b := enriched[i], enriched[j]
				if a.VerticalOffset != b.VerticalOffset {
					continue
				}
				for _, ra := range connectorRanges(a.Arrow, lb) {
					for _, rb := range connectorRanges(b.Arrow, lb) {
						if ra.Overlaps(rb) {
							t.Fatalf("relations %v and %v share lane %d", a.Span, b.Span, a.VerticalOffset)
						}
					}
				}
			}
		}
	}
}

func TestHitTestConsistency(t *testing.T) {
	for _, width := range []float64{120, 250, 400, 2000} {
		res := computeSample(t, width)
		for _, seg := range res.Segments {
			tok := res.HitTest((seg.X1+seg.X2)/2, seg.Y1)
			a, ok := tok.(*EnrichedAnnotation)
			if !ok || a != res.Annotations[seg.Index] {
				t.Fatalf("width %g: segment %+v hit %#v", width, seg, tok)
			}
		}
		for i, rel := range res.Relations {
			p := res.Polylines[i].Points
			// 锚点所在行的水平段中点
			tok := res.HitTest((p[1].X+p[2].X)/2, p[1].Y)
			if got, ok := tok.(*EnrichedRelation); !ok || got != rel {
				t.Fatalf("width %g: relation %d hit %#v", width, i, tok)
			}
			if tok.GroupKey() != "time_of" {
				t.Fatalf("unexpected key %s", tok.GroupKey())
			}
		}
	}
}

func TestHitTestMisses(t *testing.T) {
	res := computeSample(t, 400)
	m := res.Mapper()
	// 文字中线上既不是批注也不是关系
	if tok := res.HitTest(15, m.LineCenterY(0)); tok != nil {
		t.Fatalf("expected miss on text baseline, got %#v", tok)
	}
	// 批注泳道上但不在任何批注范围内
	if tok := res.HitTest(5, m.LineToY(0, 0, Below)); tok != nil {
		t.Fatalf("expected miss before first annotation, got %#v", tok)
	}
	var nilResult *Result
	if nilResult.HitTest(0, 0) != nil {
		t.Fatalf("nil result should not hit")
	}
}

func TestHitTestRelationGutterOnInteriorLine(t *testing.T) {
	text := "aaaa bbbb cccc dddd"
	res, err := Compute(Input{
		Text:      text,
		Relations: []RelationGroup{{Key: "r", Values: []RelationSpan{{0, 3, 15, 18}}}},
	}, BuildOptions{UI: UIOptions{ContainerWidth: 50, CharWidth: 10}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.LineBreaks) != 4 {
		t.Fatalf("expected 4 lines, got %v", res.LineBreaks)
	}
	m := res.Mapper()
	gx := m.GutterX(0)
	for line := 0; line <= 3; line++ {
		tok := res.HitTest(gx, m.LineToY(line, 0, Above))
		if tok == nil || tok.GroupKey() != "r" {
			t.Fatalf("gutter on line %d should hit relation, got %#v", line, tok)
		}
	}
	// 第 1 行的文字区域不属于跨行关系
	if tok := res.HitTest(20, m.LineToY(1, 0, Above)); tok != nil {
		t.Fatalf("interior line text area should miss, got %#v", tok)
	}
}

func TestHitTestHalfCellAnchors(t *testing.T) {
	// 两条关系在同一泳道，区间 [4.5, 33] 与 [33.5, 34] 只隔半格
	res, err := Compute(Input{
		Text:      strings.Repeat("x", 40),
		Relations: []RelationGroup{{Key: "r", Values: []RelationSpan{{33, 33, 2, 7}, {34, 34, 33, 34}}}},
	}, BuildOptions{UI: UIOptions{ContainerWidth: 2000, CharWidth: 10}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Relations[0].VerticalOffset != 0 || res.Relations[1].VerticalOffset != 0 {
		t.Fatalf("expected both relations in lane 0, got %d and %d", res.Relations[0].VerticalOffset, res.Relations[1].VerticalOffset)
	}
	for i, rel := range res.Relations {
		p := res.Polylines[i].Points
		tok := res.HitTest((p[1].X+p[2].X)/2, p[1].Y)
		if got, ok := tok.(*EnrichedRelation); !ok || got != rel {
			t.Fatalf("relation %d midpoint hit %#v", i, tok)
		}
	}
	y := res.Polylines[0].Points[1].Y
	if tok := res.HitTest(325, y); tok != res.Relations[0] {
		t.Fatalf("x=325 should hit the first relation, got %#v", tok)
	}
	if tok := res.HitTest(332, y); tok != nil {
		t.Fatalf("gap between anchors 33 and 33.5 should miss, got %#v", tok)
	}
}

func TestComputeValidation(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		opts BuildOptions
		code errors.Code
	}{
		{"end beyond text", Input{Text: "abc", Annotations: []AnnotationGroup{{Key: "a", Values: []Span{{0, 4}}}}}, BuildOptions{}, errors.ErrCodeInvalidSpan},
		{"negative start", Input{Text: "abc", Annotations: []AnnotationGroup{{Key: "a", Values: []Span{{-1, 2}}}}}, BuildOptions{}, errors.ErrCodeInvalidSpan},
		{"inverted span", Input{Text: "abc", Annotations: []AnnotationGroup{{Key: "a", Values: []Span{{2, 1}}}}}, BuildOptions{}, errors.ErrCodeInvalidSpan},
		{"relation to out of range", Input{Text: "abc", Relations: []RelationGroup{{Key: "r", Values: []RelationSpan{{0, 1, 2, 9}}}}}, BuildOptions{}, errors.ErrCodeInvalidSpan},
		{"duplicate key", Input{Text: "abc", Annotations: []AnnotationGroup{{Key: "a"}}, Relations: []RelationGroup{{Key: "a"}}}, BuildOptions{}, errors.ErrCodeInvalidInput},
		{"missing key", Input{Text: "abc", Annotations: []AnnotationGroup{{}}}, BuildOptions{}, errors.ErrCodeInvalidInput},
		{"negative spacing", Input{Text: "abc"}, BuildOptions{UI: UIOptions{SpaceBetweenSvgs: -1}}, errors.ErrCodeInvalidOptions},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Compute(c.in, c.opts)
			if !errors.Is(err, c.code) {
				t.Fatalf("expected %s, got %v", c.code, err)
			}
		})
	}
	// 区间端点等于文本长度是合法的
	if _, err := Compute(Input{Text: "abc", Annotations: []AnnotationGroup{{Key: "a", Values: []Span{{0, 3}}}}}, BuildOptions{}); err != nil {
		t.Fatalf("end == len(text) should be valid: %v", err)
	}
}

func TestComputeDegenerateInputs(t *testing.T) {
	res, err := Compute(Input{}, BuildOptions{UI: UIOptions{ContainerWidth: 0}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if diff := cmp.Diff(LineBreaks{0}, res.LineBreaks); diff != "" {
		t.Fatalf("line breaks mismatch:\n%s", diff)
	}
	if res.Metrics.StackHeight != 0 || len(res.Segments) != 0 || len(res.Polylines) != 0 {
		t.Fatalf("expected empty geometry, got %+v", res.Metrics)
	}
	wantHeight := res.Metrics.CharHeight + 2*res.Options.DefaultSvgPadding
	if math.Abs(res.Bounds.Height-wantHeight) > 1e-9 {
		t.Fatalf("bounds height = %g, want %g", res.Bounds.Height, wantHeight)
	}

	res, err = Compute(Input{Text: "abc"}, BuildOptions{UI: UIOptions{CharWidth: 10, ContainerWidth: 1e-3}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Lines) != 3 {
		t.Fatalf("near-zero width should give one rune per line, got %d lines", len(res.Lines))
	}
}

type fixedTypesetter struct{ width float64 }

func (f fixedTypesetter) CharWidth(fontSize float64) (float64, error) { return f.width, nil }

func TestCharWidthResolution(t *testing.T) {
	res, err := Compute(Input{Text: "abc"}, BuildOptions{Typesetter: fixedTypesetter{width: 12}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Metrics.CharWidth != 12 {
		t.Fatalf("typesetter width ignored: %g", res.Metrics.CharWidth)
	}
	res, _ = Compute(Input{Text: "abc"}, BuildOptions{Typesetter: fixedTypesetter{width: 12}, UI: UIOptions{CharWidth: 7}})
	if res.Metrics.CharWidth != 7 {
		t.Fatalf("explicit char width should win: %g", res.Metrics.CharWidth)
	}
	res, _ = Compute(Input{Text: "abc"}, BuildOptions{})
	if res.Metrics.CharWidth != 10 {
		t.Fatalf("default char width should be fontSize/2: %g", res.Metrics.CharWidth)
	}
}

func TestHiddenGroupsAndLegend(t *testing.T) {
	res, err := Compute(Input{
		Text:        sampleText,
		Annotations: sampleAnnotations(),
		Relations:   sampleRelations(),
	}, BuildOptions{UI: UIOptions{CharWidth: 10}, Hidden: map[string]bool{"diagnosis": true, "time_of": true}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, a := range res.Annotations {
		if a.Key == "diagnosis" {
			t.Fatalf("hidden group laid out")
		}
	}
	if len(res.Relations) != 0 || res.RelationsStack != 0 {
		t.Fatalf("hidden relations laid out")
	}
	if len(res.Legend) != 5 || !res.Legend[0].Hidden || res.Legend[0].Name != "Diagnosis" || res.Legend[1].Name != "time" {
		t.Fatalf("unexpected legend: %+v", res.Legend)
	}
	// 颜色与可见性无关
	if res.Legend[1].Color != Palette[1] || res.Legend[4].Color != Palette[4] {
		t.Fatalf("legend colors should follow palette order: %+v", res.Legend)
	}
}

func TestScrollTargets(t *testing.T) {
	first := -1
	res, err := Compute(Input{Text: sampleText, Annotations: sampleAnnotations()}, BuildOptions{UI: UIOptions{ContainerWidth: 400, CharWidth: 10}, ScrollTo: &first})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	m := res.Mapper()
	if res.ScrollY == nil || *res.ScrollY != m.LineToY(-1, 0, Below) {
		t.Fatalf("first annotation is on line 0, got %v", res.ScrollY)
	}
	y := res.ScrollToChar(120)
	if y == nil || *y != m.LineToY(2, 0, Below) {
		t.Fatalf("char 120 is on line 3, scroll should target line 2")
	}
	empty, _ := Compute(Input{Text: "abc"}, BuildOptions{})
	if empty.ScrollToFirstAnnotation() != nil {
		t.Fatalf("no annotations should not scroll")
	}
}

func TestEngineReusesLineBreaks(t *testing.T) {
	e := NewEngine()
	in := Input{Text: sampleText}
	a, err := e.Compute(in, BuildOptions{UI: UIOptions{ContainerWidth: 400, CharWidth: 10}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	a.LineBreaks[0] = -100
	b, _ := e.Compute(in, BuildOptions{UI: UIOptions{ContainerWidth: 400, CharWidth: 10}})
	if b.LineBreaks[0] != 38 {
		t.Fatalf("cached breaks leaked a caller mutation: %v", b.LineBreaks)
	}
	c, _ := e.Compute(in, BuildOptions{UI: UIOptions{ContainerWidth: 250, CharWidth: 10}})
	if len(c.LineBreaks) == len(b.LineBreaks) {
		t.Fatalf("width change should recompute")
	}
}
