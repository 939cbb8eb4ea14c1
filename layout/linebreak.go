package layout

// LineBreaks 是折行表：第 i 项为第 i 行最后一个码点（含换行符或被吞并的空格）的全局下标。
type LineBreaks []int

// ComputeLineBreaks 按等宽字体模拟贪心折行。
//
//   - '\n' 总是在自身位置断行；
//   - 放下下一个字符会超出 containerWidth 时断行：溢出字符是空格则在空格处断开，
//     否则回退到本行最近的空格或连字符，把未完成的单词带到下一行；本行没有软断点时硬断；
//   - 因溢出产生的新行开头的连续空格并入上一行，换行符产生的新行不做此处理；
//   - 空行时即便超宽也至少放下一个字符，宽度为 0 时每行一个字符。
//
// 空文本返回 [0]。
func ComputeLineBreaks(text []rune, containerWidth, charWidth float64) LineBreaks {
	n := len(text)
	if n == 0 {
		return LineBreaks{0}
	}
	breaks := make(LineBreaks, 0, 8)
	lineCharIndex := 0
	softBreak := -1 // 本行最近软断点的行内下标
	wrapped := false

	overflows := func() bool {
		return float64(lineCharIndex+1)*charWidth > containerWidth
	}
	isSoft := func(r rune) bool { return r == ' ' || r == '-' }

	for i, r := range text {
		if len(breaks) > 0 && lineCharIndex == 0 && r == ' ' && wrapped {
			breaks[len(breaks)-1]++
			continue
		}

		switch {
		case r == '\n':
			breaks = append(breaks, i)
			lineCharIndex, softBreak, wrapped = 0, -1, false
		case overflows():
			switch {
			case r == ' ':
				breaks = append(breaks, i)
				lineCharIndex, softBreak = 0, -1
			case lineCharIndex == 0:
				lineCharIndex = 1
				softBreak = -1
				if isSoft(r) {
					softBreak = 0
				}
			case softBreak >= 0:
				carried := lineCharIndex - softBreak
				breaks = append(breaks, i-carried)
				lineCharIndex, softBreak = carried, -1
				if isSoft(r) {
					softBreak = carried - 1
				}
			default:
				breaks = append(breaks, i-1)
				lineCharIndex, softBreak = 1, -1
				if isSoft(r) {
					softBreak = 0
				}
			}
			wrapped = true
		default:
			if isSoft(r) {
				softBreak = lineCharIndex
			}
			lineCharIndex++
		}
	}

	if len(breaks) == 0 || breaks[len(breaks)-1] != n-1 {
		breaks = append(breaks, n-1)
	}
	return breaks
}

// Lines 返回行数。
func (lb LineBreaks) Lines() int { return len(lb) }

// LineStart 返回第 line 行第一个码点的全局下标。
func (lb LineBreaks) LineStart(line int) int {
	if line <= 0 || len(lb) == 0 {
		return 0
	}
	if line >= len(lb) {
		line = len(lb) - 1
	}
	return lb[line-1] + 1
}

// LineLength 返回第 line 行的码点数（含行尾断点字符）。
func (lb LineBreaks) LineLength(line int) int {
	if len(lb) == 0 {
		return 0
	}
	if line < 0 {
		line = 0
	}
	if line >= len(lb) {
		line = len(lb) - 1
	}
	return lb[line] - lb.LineStart(line) + 1
}

// Position 把全局偏移映射为 (行号, 行内偏移)：取第一个断点 >= offset 的行，
// offset 等于文本长度时落在最后一行。
func (lb LineBreaks) Position(offset int) (line, charOffset int) {
	if len(lb) == 0 {
		return 0, offset
	}
	line = len(lb) - 1
	lo, hi := 0, len(lb)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if lb[mid] >= offset {
			line = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return line, offset - lb.LineStart(line)
}

// SpanPosition 分别解析区间的起点与终点。
func (lb LineBreaks) SpanPosition(s Span) LinePosition {
	startLine, startChar := lb.Position(s.Start)
	endLine, endChar := lb.Position(s.End)
	return LinePosition{
		StartLine:       startLine,
		EndLine:         endLine,
		StartCharOffset: startChar,
		EndCharOffset:   endChar,
	}
}

// splitLines 按折行表切出每一行的文本，行尾换行符不计入 Content。
func splitLines(text []rune, lb LineBreaks) []TextLine {
	if len(text) == 0 {
		return []TextLine{{Content: "", Start: 0, End: 0}}
	}
	lines := make([]TextLine, 0, len(lb))
	for i, end := range lb {
		start := lb.LineStart(i)
		stop := end + 1
		if stop > len(text) {
			stop = len(text)
		}
		content := text[start:stop]
		if len(content) > 0 && content[len(content)-1] == '\n' {
			content = content[:len(content)-1]
		}
		lines = append(lines, TextLine{Content: string(content), Start: start, End: end})
	}
	return lines
}
