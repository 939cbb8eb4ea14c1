package layout

const unknownColor = "black"

// 箭头两翼相对终点的偏移（px）。
const (
	chevronDX = 6
	chevronDY = 3
)

func colorOrDefault(c string) string {
	if c == "" {
		return unknownColor
	}
	return c
}

// AnnotationSegments 为每条批注在其跨越的每一行生成一段下划线：
// 首行从 StartCharOffset 开始，末行止于 EndCharOffset，中间行铺满整行。
func AnnotationSegments(tokens []*EnrichedAnnotation, lb LineBreaks, m Mapper) []Segment {
	var out []Segment
	for i, a := range tokens {
		p := a.Position
		for line := p.StartLine; line <= p.EndLine; line++ {
			x1 := 0
			x2 := lb.LineLength(line) - 1
			if line == p.StartLine {
				x1 = p.StartCharOffset
			}
			if line == p.EndLine {
				x2 = p.EndCharOffset
			}
			y := m.LineToY(line, a.VerticalOffset, Below)
			out = append(out, Segment{
				Key:   a.Key,
				Index: i,
				Line:  line,
				X1:    m.CharOffsetToX(float64(x1)),
				Y1:    y,
				X2:    m.CharOffsetToX(float64(x2)),
				Y2:    y,
				Color: colorOrDefault(a.Color),
			})
		}
	}
	return out
}

// RelationPolylines 为每条关系生成折线：起点竖直引线、锚点、跨行时经左侧走线、
// 终点锚点与竖直引线；方向性关系在末尾追加箭头。
func RelationPolylines(tokens []*EnrichedRelation, m Mapper) []Polyline {
	out := make([]Polyline, 0, len(tokens))
	for i, r := range tokens {
		out = append(out, Polyline{
			Key:         r.Key,
			Index:       i,
			Points:      relationPoints(r, m),
			Color:       colorOrDefault(r.Color),
			Directional: r.Directional,
		})
	}
	return out
}

func relationPoints(r *EnrichedRelation, m Mapper) []Point {
	a := r.Arrow
	lane := r.VerticalOffset
	lead := m.Options.RelationVerticalOffset + float64(lane)*m.Metrics.SvgSpace

	x1 := m.CharOffsetToX(a.FromChar)
	y1 := m.LineToY(a.FromLine, lane, Above)
	x2 := m.CharOffsetToX(a.ToChar)
	y2 := m.LineToY(a.ToLine, lane, Above)

	first := Point{X: x1, Y: y1 + lead}
	last := Point{X: x2, Y: y2 + lead}

	points := []Point{first, {X: x1, Y: y1}}
	if !a.SameLine() {
		gx := m.GutterX(lane)
		points = append(points, Point{X: gx, Y: y1}, Point{X: gx, Y: y2})
	}
	points = append(points, Point{X: x2, Y: y2}, last)

	if r.Directional {
		points = append(points,
			Point{X: last.X + chevronDX, Y: last.Y - chevronDY},
			last,
			Point{X: last.X - chevronDX, Y: last.Y - chevronDY},
			last,
		)
	}
	return points
}
