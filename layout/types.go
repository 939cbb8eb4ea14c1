package layout

// 该文件定义批注模型与布局结果，供布局计算、命中测试、渲染与调试 JSON 共用。
// 所有文本偏移均为 Unicode 码点（rune）下标。

// Span 表示文本中的一段闭区间 [Start, End]。
type Span struct {
	Start int `json:"start" toml:"start"`
	End   int `json:"end" toml:"end"`
}

// AnnotationGroup 是同一标签下的一组批注，Key 为稳定标识。
type AnnotationGroup struct {
	Key    string `json:"key"`
	Name   string `json:"name,omitempty"`
	Color  string `json:"color,omitempty"`
	Values []Span `json:"values"`
}

// RelationSpan 连接两段文本，from 不必位于 to 之前。
type RelationSpan struct {
	FromStart int `json:"fromStart"`
	FromEnd   int `json:"fromEnd"`
	ToStart   int `json:"toStart"`
	ToEnd     int `json:"toEnd"`
}

// From 返回起点区间。
func (r RelationSpan) From() Span { return Span{Start: r.FromStart, End: r.FromEnd} }

// To 返回终点区间。
func (r RelationSpan) To() Span { return Span{Start: r.ToStart, End: r.ToEnd} }

// RelationGroup 是同一标签下的一组关系。
type RelationGroup struct {
	Key         string         `json:"key"`
	Name        string         `json:"name,omitempty"`
	Color       string         `json:"color,omitempty"`
	Directional bool           `json:"directional,omitempty"`
	Values      []RelationSpan `json:"values"`
}

// LinePosition 是区间在行空间中的位置。
type LinePosition struct {
	StartLine       int `json:"startLine"`
	EndLine         int `json:"endLine"`
	StartCharOffset int `json:"startCharOffset"`
	EndCharOffset   int `json:"endCharOffset"`
}

// Token 是可被命中测试的批注或关系，只由 *EnrichedAnnotation 与 *EnrichedRelation 实现。
type Token interface {
	GroupKey() string
	Lane() int
	token()
}

// EnrichedAnnotation 是补全了行位置与泳道的批注。
type EnrichedAnnotation struct {
	Key            string       `json:"key"`
	Name           string       `json:"name,omitempty"`
	Color          string       `json:"color,omitempty"`
	Span           Span         `json:"span"`
	Position       LinePosition `json:"position"`
	VerticalOffset int          `json:"verticalOffset"`
}

func (a *EnrichedAnnotation) GroupKey() string { return a.Key }
func (a *EnrichedAnnotation) Lane() int        { return a.VerticalOffset }
func (*EnrichedAnnotation) token()             {}

// Arrow 记录关系两端的锚点（行号与行内字符位置，可为半格）。
type Arrow struct {
	FromLine int     `json:"fromLine"`
	FromChar float64 `json:"fromChar"`
	ToLine   int     `json:"toLine"`
	ToChar   float64 `json:"toChar"`
}

// SameLine 报告两端锚点是否位于同一行。
func (a Arrow) SameLine() bool { return a.FromLine == a.ToLine }

// EnrichedRelation 是补全了两端行位置、锚点与泳道的关系。
type EnrichedRelation struct {
	Key            string       `json:"key"`
	Name           string       `json:"name,omitempty"`
	Color          string       `json:"color,omitempty"`
	Directional    bool         `json:"directional,omitempty"`
	Span           RelationSpan `json:"span"`
	From           LinePosition `json:"from"`
	To             LinePosition `json:"to"`
	Arrow          Arrow        `json:"arrow"`
	VerticalOffset int          `json:"verticalOffset"`
}

func (r *EnrichedRelation) GroupKey() string { return r.Key }
func (r *EnrichedRelation) Lane() int        { return r.VerticalOffset }
func (*EnrichedRelation) token()             {}

// Metrics 是每次布局重新推导的尺寸（单位：px）。
type Metrics struct {
	CharWidth   float64 `json:"charWidth"`
	CharHeight  float64 `json:"charHeight"`
	LineHeight  float64 `json:"lineHeight"` // CharHeight 相对字号的倍数
	SvgSpace    float64 `json:"svgSpace"`   // 泳道间距
	SvgPadding  float64 `json:"svgPadding"`
	StackHeight int     `json:"stackHeight"`
}

// Point 是像素坐标。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment 是批注在某一行上的下划线。
type Segment struct {
	Key   string  `json:"key"`
	Index int     `json:"index"` // 对应 Result.Annotations 下标
	Line  int     `json:"line"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color string  `json:"color"`
}

// Polyline 是一条关系连线，方向性关系已在末尾追加箭头。
type Polyline struct {
	Key         string  `json:"key"`
	Index       int     `json:"index"` // 对应 Result.Relations 下标
	Points      []Point `json:"points"`
	Color       string  `json:"color"`
	Directional bool    `json:"directional,omitempty"`
}

// Bounds 是绘制区域（含内边距），X/Y 为左上角，可为负。
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextLine 表示折行后的一行文本，Start/End 为全局码点下标（End 含换行点）。
type TextLine struct {
	Content string  `json:"content"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Y       float64 `json:"y"` // 行中心
}

// Result 保存一次布局的全部派生数据。
type Result struct {
	Text        string                `json:"text"`
	LineBreaks  LineBreaks            `json:"lineBreaks"`
	Lines       []TextLine            `json:"lines"`
	Options     UIOptions             `json:"options"`
	Metrics     Metrics               `json:"metrics"`
	Annotations []*EnrichedAnnotation `json:"annotations"`
	Relations   []*EnrichedRelation   `json:"relations"`
	// 批注与关系各自的泳道数，二者之和即 Metrics.StackHeight
	AnnotationsStack int           `json:"annotationsStack"`
	RelationsStack   int           `json:"relationsStack"`
	Segments         []Segment     `json:"segments"`
	Polylines        []Polyline    `json:"polylines"`
	Bounds           Bounds        `json:"bounds"`
	Legend           []LegendEntry `json:"legend"`
	ScrollY          *float64      `json:"scrollY,omitempty"`
	Meta             DocumentMeta  `json:"meta"`
	Debug            *LayoutDebug  `json:"debug,omitempty"`
}

// LegendEntry 对应一个分组在图例中的显示状态。
type LegendEntry struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Kind   string `json:"kind"` // annotation | relation
	Count  int    `json:"count"`
	Hidden bool   `json:"hidden,omitempty"`
}

// LayoutDebug 仅在 BuildOptions.Debug.Lanes 打开时输出泳道占用区间。
type LayoutDebug struct {
	AnnotationLanes [][]Interval `json:"annotationLanes"`
	RelationLanes   [][]Interval `json:"relationLanes"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DocumentMeta 保存文档元信息，渲染 PDF 时写入 Info。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
