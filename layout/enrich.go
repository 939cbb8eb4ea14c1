package layout

// Interval 是全局码点空间中的闭区间，关系锚点可能落在半格上。
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Overlaps 使用闭区间判定：!(a.End < b.Start || a.Start > b.End)。
func (a Interval) Overlaps(b Interval) bool {
	return !(a.End < b.Start || a.Start > b.End)
}

// laneStack 按输入顺序做首次适配的泳道分配，不排序，保证结果可复现。
type laneStack struct {
	lanes [][]Interval
}

// place 把一组区间放进第一个与其中任一区间都不冲突的泳道，返回泳道下标。
func (s *laneStack) place(ranges ...Interval) int {
	lane := 0
	for ; lane < len(s.lanes); lane++ {
		if !s.collides(lane, ranges) {
			break
		}
	}
	if lane == len(s.lanes) {
		s.lanes = append(s.lanes, nil)
	}
	s.lanes[lane] = append(s.lanes[lane], ranges...)
	return lane
}

func (s *laneStack) collides(lane int, ranges []Interval) bool {
	for _, placed := range s.lanes[lane] {
		for _, r := range ranges {
			if placed.Overlaps(r) {
				return true
			}
		}
	}
	return false
}

func (s *laneStack) height() int { return len(s.lanes) }

// EnrichAnnotations 解析每条批注的行位置并分配泳道，返回泳道总数。
func EnrichAnnotations(groups []AnnotationGroup, lb LineBreaks) ([]*EnrichedAnnotation, int) {
	out, stack := enrichAnnotations(groups, lb)
	return out, stack.height()
}

func enrichAnnotations(groups []AnnotationGroup, lb LineBreaks) ([]*EnrichedAnnotation, *laneStack) {
	stack := &laneStack{}
	var out []*EnrichedAnnotation
	for _, g := range groups {
		for _, v := range g.Values {
			lane := stack.place(Interval{Start: float64(v.Start), End: float64(v.End)})
			out = append(out, &EnrichedAnnotation{
				Key:            g.Key,
				Name:           g.Name,
				Color:          g.Color,
				Span:           v,
				Position:       lb.SpanPosition(v),
				VerticalOffset: lane,
			})
		}
	}
	return out, stack
}

// EnrichRelations 解析关系两端的行位置与锚点，并按连线实际占用的区间分配泳道。
func EnrichRelations(groups []RelationGroup, lb LineBreaks) ([]*EnrichedRelation, int) {
	out, stack := enrichRelations(groups, lb)
	return out, stack.height()
}

func enrichRelations(groups []RelationGroup, lb LineBreaks) ([]*EnrichedRelation, *laneStack) {
	stack := &laneStack{}
	var out []*EnrichedRelation
	for _, g := range groups {
		for _, v := range g.Values {
			from := lb.SpanPosition(v.From())
			to := lb.SpanPosition(v.To())
			arrow := ResolveArrow(from, to, lb)
			lane := stack.place(connectorRanges(arrow, lb)...)
			out = append(out, &EnrichedRelation{
				Key:            g.Key,
				Name:           g.Name,
				Color:          g.Color,
				Directional:    g.Directional,
				Span:           v,
				From:           from,
				To:             to,
				Arrow:          arrow,
				VerticalOffset: lane,
			})
		}
	}
	return out, stack
}

// connectorRanges 返回连线在全局码点空间中的占用区间。
// 同行：两锚点之间；跨行：两端各自从行首到锚点，外加一段负数空间的区间表示
// 左侧走线经过的行 [-(hi+1), -(lo+1)]，使共用走线的跨行关系不会落在同一泳道。
func connectorRanges(a Arrow, lb LineBreaks) []Interval {
	from := float64(lb.LineStart(a.FromLine)) + a.FromChar
	to := float64(lb.LineStart(a.ToLine)) + a.ToChar
	if a.SameLine() {
		return []Interval{{Start: min(from, to), End: max(from, to)}}
	}
	lo, hi := min(a.FromLine, a.ToLine), max(a.FromLine, a.ToLine)
	return []Interval{
		{Start: float64(lb.LineStart(a.FromLine)), End: from},
		{Start: float64(lb.LineStart(a.ToLine)), End: to},
		{Start: -float64(hi + 1), End: -float64(lo + 1)},
	}
}
