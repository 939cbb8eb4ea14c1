package layout

import (
	"strconv"
	"strings"

	"github.com/ByLCY/marginalia/errors"
)

// Palette 是未指定颜色的分组依次使用的默认颜色。
var Palette = []string{
	"#3cb44b", "#ffe119", "#4363d8", "#f58231", "#42d4f4", "#f032e6",
	"#fabed4", "#469990", "#dcbeff", "#9A6324", "#fffac8", "#800000",
	"#aaffc3", "#000075", "#a9a9a9", "#e6194B", "#ffffff",
}

var namedColors = map[string]Color{
	"black": {R: 0, G: 0, B: 0},
	"white": {R: 255, G: 255, B: 255},
	"red":   {R: 255, G: 0, B: 0},
	"green": {R: 0, G: 128, B: 0},
	"blue":  {R: 0, G: 0, B: 255},
	"gray":  {R: 128, G: 128, B: 128},
	"grey":  {R: 128, G: 128, B: 128},
}

// AssignDefaultColors 为缺少颜色的分组按调色板循环分配颜色，先批注后关系。
// next 为调色板起始下标，返回值为下一次调用应使用的下标；入参切片不会被修改。
func AssignDefaultColors(annotations []AnnotationGroup, relations []RelationGroup, next int) ([]AnnotationGroup, []RelationGroup, int) {
	pick := func() string {
		c := Palette[((next%len(Palette))+len(Palette))%len(Palette)]
		next++
		return c
	}
	outA := make([]AnnotationGroup, len(annotations))
	for i, g := range annotations {
		if g.Color == "" {
			g.Color = pick()
		}
		outA[i] = g
	}
	outR := make([]RelationGroup, len(relations))
	for i, g := range relations {
		if g.Color == "" {
			g.Color = pick()
		}
		outR[i] = g
	}
	return outA, outR, next
}

// ParseColor 解析 #rgb、#rrggbb、#rrggbbaa 或少量颜色名。
func ParseColor(value string) (Color, error) {
	v := strings.TrimSpace(value)
	if c, ok := namedColors[strings.ToLower(v)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(v, "#")
	if len(hex) == len(v) {
		return Color{}, errors.New(errors.ErrCodeInvalidFormat, "颜色值 %s 无法解析", value)
	}
	switch len(hex) {
	case 3:
		r := strings.Repeat(string(hex[0]), 2)
		g := strings.Repeat(string(hex[1]), 2)
		b := strings.Repeat(string(hex[2]), 2)
		return hexColor(value, r, g, b)
	case 6, 8:
		return hexColor(value, hex[0:2], hex[2:4], hex[4:6])
	default:
		return Color{}, errors.New(errors.ErrCodeInvalidFormat, "颜色值 %s 无法解析", value)
	}
}

func hexColor(raw, r, g, b string) (Color, error) {
	var out [3]int
	for i, part := range []string{r, g, b} {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return Color{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "颜色值 %s 无法解析", raw)
		}
		out[i] = int(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

// MustColor 解析失败时回退为黑色，供渲染阶段使用。
func MustColor(value string) Color {
	c, err := ParseColor(value)
	if err != nil {
		return namedColors[unknownColor]
	}
	return c
}

// Hex 以 #rrggbb 输出颜色。
func (c Color) Hex() string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []int{c.R, c.G, c.B} {
		v = max(0, min(255, v))
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0xf]
	}
	return string(b)
}
