package layout

// ResolveArrow 计算关系两端的锚点。锚点行取端点的起始行；端点在单行内时锚点为
// 起止偏移的中点，跨行时为起始偏移与该行码点数的中点（即靠近折行边缘）。
// 绘制与命中测试共用此结果。
func ResolveArrow(from, to LinePosition, lb LineBreaks) Arrow {
	return Arrow{
		FromLine: from.StartLine,
		FromChar: anchorChar(from, lb),
		ToLine:   to.StartLine,
		ToChar:   anchorChar(to, lb),
	}
}

func anchorChar(p LinePosition, lb LineBreaks) float64 {
	if p.StartLine == p.EndLine {
		return float64(p.StartCharOffset+p.EndCharOffset) / 2
	}
	return float64(p.StartCharOffset+lb.LineLength(p.StartLine)) / 2
}
