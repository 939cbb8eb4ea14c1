package layout

import (
	"fmt"

	"github.com/ByLCY/marginalia/errors"
)

// UIOptions 描述绘制参数，单位均为 px。
// Merge 时非零字段与经 With 显式设置的字段（包括 0）覆盖下层的值。
type UIOptions struct {
	FontSize                 float64 `json:"fontSize" toml:"font-size"`
	DefaultSvgPadding        float64 `json:"defaultSvgPadding" toml:"default-svg-padding"`
	SpaceBetweenTextAndSvg   float64 `json:"spaceBetweenTextAndSvg" toml:"space-between-text-and-svg"`
	SvgWidth                 float64 `json:"svgWidth" toml:"svg-width"`
	SpaceBetweenSvgs         float64 `json:"spaceBetweenSvgs" toml:"space-between-svgs"`
	SpaceBeforeNextLine      float64 `json:"spaceBeforeNextLine" toml:"space-before-next-line"`
	RelationVerticalOffset   float64 `json:"relationVerticalOffset" toml:"relation-vertical-offset"`
	RelationHorizontalOffset float64 `json:"relationHorizontalOffset" toml:"relation-horizontal-offset"`
	ContainerWidth           float64 `json:"containerWidth" toml:"width"`
	// CharWidth 为 0 时由 Typesetter 测量，仍为 0 则取 FontSize/2。
	CharWidth float64 `json:"charWidth,omitempty" toml:"char-width"`

	explicit uint16
}

// Option 标识 UIOptions 中的一个参数。
type Option int

const (
	OptFontSize Option = iota
	OptDefaultSvgPadding
	OptSpaceBetweenTextAndSvg
	OptSvgWidth
	OptSpaceBetweenSvgs
	OptSpaceBeforeNextLine
	OptRelationVerticalOffset
	OptRelationHorizontalOffset
	OptContainerWidth
	OptCharWidth
	numOptions
)

// optionNames 与文档 options 段落、TOML 配置中的键一致。
var optionNames = [numOptions]string{
	"font-size",
	"default-svg-padding",
	"space-between-text-and-svg",
	"svg-width",
	"space-between-svgs",
	"space-before-next-line",
	"relation-vertical-offset",
	"relation-horizontal-offset",
	"width",
	"char-width",
}

func (f Option) String() string {
	if f < 0 || f >= numOptions {
		return fmt.Sprintf("Option(%d)", int(f))
	}
	return optionNames[f]
}

// LookupOption 按键名查找参数。
func LookupOption(name string) (Option, bool) {
	for i, n := range optionNames {
		if n == name {
			return Option(i), true
		}
	}
	return 0, false
}

// Options 按声明顺序返回全部参数。
func Options() []Option {
	out := make([]Option, numOptions)
	for i := range out {
		out[i] = Option(i)
	}
	return out
}

func (o *UIOptions) field(f Option) *float64 {
	switch f {
	case OptFontSize:
		return &o.FontSize
	case OptDefaultSvgPadding:
		return &o.DefaultSvgPadding
	case OptSpaceBetweenTextAndSvg:
		return &o.SpaceBetweenTextAndSvg
	case OptSvgWidth:
		return &o.SvgWidth
	case OptSpaceBetweenSvgs:
		return &o.SpaceBetweenSvgs
	case OptSpaceBeforeNextLine:
		return &o.SpaceBeforeNextLine
	case OptRelationVerticalOffset:
		return &o.RelationVerticalOffset
	case OptRelationHorizontalOffset:
		return &o.RelationHorizontalOffset
	case OptContainerWidth:
		return &o.ContainerWidth
	case OptCharWidth:
		return &o.CharWidth
	}
	panic(fmt.Sprintf("layout: unknown option %d", int(f)))
}

// Get 返回参数当前的值。
func (o UIOptions) Get(f Option) float64 { return *o.field(f) }

// With 设置参数并标记为显式，Merge 时即使为 0 也会覆盖下层。
func (o UIOptions) With(f Option, v float64) UIOptions {
	*o.field(f) = v
	o.explicit |= 1 << f
	return o
}

// IsSet 报告参数是否非零或被显式设置。
func (o UIOptions) IsSet(f Option) bool {
	return o.explicit&(1<<f) != 0 || o.Get(f) != 0
}

// DefaultUIOptions 返回默认绘制参数。
func DefaultUIOptions() UIOptions {
	return UIOptions{
		FontSize:                 20,
		DefaultSvgPadding:        10,
		SpaceBetweenTextAndSvg:   6,
		SvgWidth:                 3,
		SpaceBetweenSvgs:         2,
		SpaceBeforeNextLine:      10,
		RelationVerticalOffset:   7,
		RelationHorizontalOffset: 5,
		ContainerWidth:           640,
	}
}

// Merge 用 override 中已设置的字段覆盖 o，显式标记一并继承。
func (o UIOptions) Merge(override UIOptions) UIOptions {
	for _, f := range Options() {
		if override.IsSet(f) {
			o = o.With(f, override.Get(f))
		}
	}
	return o
}

// Validate 拒绝会导致几何无意义的参数。
func (o UIOptions) Validate() error {
	if o.FontSize <= 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "font-size 必须为正数，当前为 %g", o.FontSize)
	}
	if o.SvgWidth <= 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "svg-width 必须为正数，当前为 %g", o.SvgWidth)
	}
	for _, f := range Options() {
		if v := o.Get(f); v < 0 {
			return errors.New(errors.ErrCodeInvalidOptions, "%s 不能为负数，当前为 %g", f, v)
		}
	}
	return nil
}

// BuildOptions 配置布局阶段所需的依赖与开关。
type BuildOptions struct {
	Typesetter Typesetter
	// UI 覆盖默认值与文档 options 段落中的参数。
	UI UIOptions
	// Hidden 中的分组不参与布局，但仍出现在图例中。
	Hidden map[string]bool
	// ScrollTo 非空时计算滚动到该码点所在行的位置；为负数时滚动到第一个批注。
	ScrollTo *int
	Debug    DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Lanes bool // 在调试 JSON 中输出各泳道占用区间
}

// Typesetter 负责测量等宽字体的字符宽度（px）。
type Typesetter interface {
	CharWidth(fontSize float64) (float64, error)
}
