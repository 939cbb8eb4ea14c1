package layout

// HitTest 返回像素 (x, y) 处的批注或关系，未命中返回 nil。
// 先以 Below 方向匹配批注，再以 Above 方向匹配关系，先匹配者优先。
func (r *Result) HitTest(x, y float64) Token {
	if r == nil {
		return nil
	}
	m := r.Mapper()
	char := m.XToCharOffset(x)

	line, lane := m.YToLine(y, Below)
	for _, a := range r.Annotations {
		if annotationContains(a, line, char, lane) {
			return a
		}
	}

	line, lane = m.YToLine(y, Above)
	pos := x / m.Metrics.CharWidth
	for _, rel := range r.Relations {
		if relationContains(rel, m, line, pos, lane) {
			return rel
		}
	}
	return nil
}

// Mapper 返回与本次布局一致的坐标转换器。
func (r *Result) Mapper() Mapper {
	return Mapper{Options: r.Options, Metrics: r.Metrics}
}

func annotationContains(a *EnrichedAnnotation, line, char, lane int) bool {
	p := a.Position
	if lane != a.VerticalOffset || line < p.StartLine || line > p.EndLine {
		return false
	}
	if line == p.StartLine && char < p.StartCharOffset {
		return false
	}
	if line == p.EndLine && char > p.EndCharOffset {
		return false
	}
	return true
}

// relationContains 以锚点为可点击边界：同行时为两锚点之间；跨行时锚点所在行为
// 左侧走线到锚点之间，中间行只有走线本身（左右各半个泳道间距）。
// pos 是未取整的码点位置，与分配泳道时的实数区间一致，锚点可能落在半格上。
func relationContains(r *EnrichedRelation, m Mapper, line int, pos float64, lane int) bool {
	if lane != r.VerticalOffset {
		return false
	}
	a := r.Arrow
	if a.SameLine() {
		if line != a.FromLine {
			return false
		}
		return within(pos, min(a.FromChar, a.ToChar), max(a.FromChar, a.ToChar))
	}

	lo, hi := min(a.FromLine, a.ToLine), max(a.FromLine, a.ToLine)
	if line < lo || line > hi {
		return false
	}
	gutter := m.GutterX(lane) / m.Metrics.CharWidth
	switch line {
	case a.FromLine:
		return within(pos, gutter, a.FromChar)
	case a.ToLine:
		return within(pos, gutter, a.ToChar)
	default:
		half := m.Metrics.SvgSpace / 2 / m.Metrics.CharWidth
		return within(pos, gutter-half, gutter+half)
	}
}

// hitEpsilon 吸收 x 与码点位置往返换算的浮点误差，远小于锚点的半格粒度。
const hitEpsilon = 1e-9

func within(pos, lo, hi float64) bool {
	return pos >= lo-hitEpsilon && pos <= hi+hitEpsilon
}
