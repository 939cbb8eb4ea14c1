// Package annotator 是宿主与布局引擎之间的会话边界：宿主提供选区能力并接收编辑回调，
// 会话负责标签选择、图例可见性、两步创建关系以及每次变更后的重新布局。
package annotator

import (
	"maps"
	"slices"

	"github.com/ByLCY/marginalia/errors"
	"github.com/ByLCY/marginalia/layout"
)

// Selection 由宿主实现，返回当前文本选区的码点偏移。
type Selection interface {
	SelectionOffsets() (from, to int, err error)
}

// SelectionFunc 把普通函数适配为 Selection。
type SelectionFunc func() (from, to int, err error)

// SelectionOffsets 调用 f。
func (f SelectionFunc) SelectionOffsets() (int, int, error) { return f() }

// LabelKind 区分批注标签与关系标签。
type LabelKind string

const (
	KindAnnotation LabelKind = "annotation"
	KindRelation   LabelKind = "relation"
)

// Label 指向一个分组。
type Label struct {
	Key  string
	Kind LabelKind
}

// OperationType 标记一次编辑是新增还是删除。
type OperationType string

const (
	OpAdd    OperationType = "add"
	OpDelete OperationType = "delete"
)

// AnnotationOperation 描述一次批注编辑。
type AnnotationOperation struct {
	Type     OperationType
	LabelKey string
	Range    layout.Span
}

// RelationOperation 描述一次关系编辑。
type RelationOperation struct {
	Type     OperationType
	LabelKey string
	Range    layout.RelationSpan
}

// Callbacks 是会话发出的通知，均可为 nil，只在编辑成功布局后触发。
// OnChange* 收到分组及其 Values 的深拷贝，修改它们不影响会话。
type Callbacks struct {
	OnAnnotate          func(span layout.Span)
	OnDeleteAnnotation  func(key string, span layout.Span)
	OnDeleteRelation    func(key string, span layout.RelationSpan)
	OnChangeAnnotations func(groups []layout.AnnotationGroup, op AnnotationOperation)
	OnChangeRelations   func(groups []layout.RelationGroup, op RelationOperation)
}

// Options 配置会话。
type Options struct {
	UI         layout.UIOptions
	Typesetter layout.Typesetter
	ReadOnly   bool
	Callbacks  Callbacks
}

// Session 持有一份输入快照与最近一次布局结果，不可并发使用。
type Session struct {
	engine   *layout.Engine
	in       layout.Input
	opts     Options
	hidden   map[string]bool
	selected *Label
	pending  *layout.Span
	result   *layout.Result
}

// New 创建会话并完成首次布局。缺少颜色的分组在此一次性分配颜色，之后的编辑与隐藏不会改变颜色。
func New(in layout.Input, opts Options) (*Session, error) {
	in.Annotations, in.Relations, _ = layout.AssignDefaultColors(in.Annotations, in.Relations, 0)
	s := &Session{
		engine: layout.NewEngine(),
		in:     in,
		opts:   opts,
		hidden: make(map[string]bool),
	}
	switch {
	case len(in.Annotations) > 0:
		s.selected = &Label{Key: in.Annotations[0].Key, Kind: KindAnnotation}
	case len(in.Relations) > 0:
		s.selected = &Label{Key: in.Relations[0].Key, Kind: KindRelation}
	}
	res, err := s.compute(in, opts.UI, s.hidden)
	if err != nil {
		return nil, err
	}
	s.result = res
	return s, nil
}

// Result 返回最近一次布局结果。
func (s *Session) Result() *layout.Result { return s.result }

// Annotations 返回当前批注分组的副本。
func (s *Session) Annotations() []layout.AnnotationGroup { return cloneAnnotationGroups(s.in.Annotations) }

// Relations 返回当前关系分组的副本。
func (s *Session) Relations() []layout.RelationGroup { return cloneRelationGroups(s.in.Relations) }

// ReadOnly 报告会话是否只读。
func (s *Session) ReadOnly() bool { return s.opts.ReadOnly }

// SelectedLabel 返回当前选中的标签，没有任何分组时 ok 为 false。
func (s *Session) SelectedLabel() (Label, bool) {
	if s.selected == nil {
		return Label{}, false
	}
	return *s.selected, true
}

// SelectLabel 切换当前标签，并放弃尚未完成的关系。
func (s *Session) SelectLabel(key string) error {
	kind, ok := s.kindOf(key)
	if !ok {
		return errors.New(errors.ErrCodeUnknownGroup, "分组 %s 不存在", key)
	}
	s.selected = &Label{Key: key, Kind: kind}
	s.pending = nil
	return nil
}

// PendingRelation 返回两步创建关系时已记录的第一段选区。
func (s *Session) PendingRelation() (layout.Span, bool) {
	if s.pending == nil {
		return layout.Span{}, false
	}
	return *s.pending, true
}

// CancelRelation 丢弃已记录的第一段选区。
func (s *Session) CancelRelation() { s.pending = nil }

// ToggleHidden 切换分组在布局中的可见性，返回切换后的隐藏状态。
func (s *Session) ToggleHidden(key string) (bool, error) {
	if _, ok := s.kindOf(key); !ok {
		return false, errors.New(errors.ErrCodeUnknownGroup, "分组 %s 不存在", key)
	}
	hidden := maps.Clone(s.hidden)
	if hidden[key] {
		delete(hidden, key)
	} else {
		hidden[key] = true
	}
	res, err := s.compute(s.in, s.opts.UI, hidden)
	if err != nil {
		return s.hidden[key], err
	}
	s.hidden, s.result = hidden, res
	return hidden[key], nil
}

// Hidden 报告分组当前是否被隐藏。
func (s *Session) Hidden(key string) bool { return s.hidden[key] }

// Resize 以新的容器宽度重新布局，0 表示宽度为 0 而不是默认宽度。布局失败时保持原宽度。
func (s *Session) Resize(width float64) error {
	ui := s.opts.UI.With(layout.OptContainerWidth, width)
	res, err := s.compute(s.in, ui, s.hidden)
	if err != nil {
		return err
	}
	s.opts.UI, s.result = ui, res
	return nil
}

// Legend 返回图例，包含被隐藏的分组。
func (s *Session) Legend() []layout.LegendEntry { return s.result.Legend }

// ContextMenu 返回像素 (x, y) 处的批注或关系，供宿主弹出菜单。
func (s *Session) ContextMenu(x, y float64) layout.Token {
	return s.result.HitTest(x, y)
}

// ScrollToFirstAnnotation 返回滚动到第一个可见批注所需的 y。
func (s *Session) ScrollToFirstAnnotation() *float64 {
	return s.result.ScrollToFirstAnnotation()
}

// Annotate 读取宿主选区并按当前标签新增批注；关系标签下第一次调用只记录选区，第二次调用完成关系。
// 空选区与未选中标签时不做任何事。
func (s *Session) Annotate(sel Selection) error {
	if s.opts.ReadOnly {
		return errors.New(errors.ErrCodeReadOnly, "只读模式下不能新增批注")
	}
	if s.selected == nil {
		return nil
	}
	from, to, err := sel.SelectionOffsets()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "读取选区失败")
	}
	if from > to {
		from, to = to, from
	}
	span := layout.Span{Start: from, End: to}
	if from == to {
		return nil
	}
	if err := layout.ValidateSpans(len([]rune(s.in.Text)), []layout.AnnotationGroup{{Key: "selection", Values: []layout.Span{span}}}, nil); err != nil {
		return err
	}
	if fn := s.opts.Callbacks.OnAnnotate; fn != nil {
		fn(span)
	}

	switch s.selected.Kind {
	case KindAnnotation:
		return s.addAnnotation(s.selected.Key, span)
	default:
		if s.pending == nil {
			s.pending = &span
			return nil
		}
		first := *s.pending
		s.pending = nil
		return s.addRelation(s.selected.Key, layout.RelationSpan{
			FromStart: first.Start,
			FromEnd:   first.End,
			ToStart:   span.Start,
			ToEnd:     span.End,
		})
	}
}

// Delete 删除 token 对应的批注或关系。同一分组中区间完全相同的条目会一并删除。
func (s *Session) Delete(tok layout.Token) error {
	if s.opts.ReadOnly {
		return errors.New(errors.ErrCodeReadOnly, "只读模式下不能删除")
	}
	switch t := tok.(type) {
	case *layout.EnrichedAnnotation:
		return s.deleteAnnotation(t.Key, t.Span)
	case *layout.EnrichedRelation:
		return s.deleteRelation(t.Key, t.Span)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "无法删除 %T", tok)
	}
}

func (s *Session) addAnnotation(key string, span layout.Span) error {
	i := slices.IndexFunc(s.in.Annotations, func(g layout.AnnotationGroup) bool { return g.Key == key })
	if i < 0 {
		return errors.New(errors.ErrCodeUnknownGroup, "批注分组 %s 不存在", key)
	}
	groups := slices.Clone(s.in.Annotations)
	groups[i].Values = append(slices.Clip(groups[i].Values), span)
	return s.commitAnnotations(groups, AnnotationOperation{Type: OpAdd, LabelKey: key, Range: span})
}

func (s *Session) deleteAnnotation(key string, span layout.Span) error {
	i := slices.IndexFunc(s.in.Annotations, func(g layout.AnnotationGroup) bool { return g.Key == key })
	if i < 0 {
		return errors.New(errors.ErrCodeUnknownGroup, "批注分组 %s 不存在", key)
	}
	groups := slices.Clone(s.in.Annotations)
	groups[i].Values = slices.DeleteFunc(slices.Clone(groups[i].Values), func(v layout.Span) bool { return v == span })
	if err := s.commitAnnotations(groups, AnnotationOperation{Type: OpDelete, LabelKey: key, Range: span}); err != nil {
		return err
	}
	if fn := s.opts.Callbacks.OnDeleteAnnotation; fn != nil {
		fn(key, span)
	}
	return nil
}

func (s *Session) addRelation(key string, span layout.RelationSpan) error {
	i := slices.IndexFunc(s.in.Relations, func(g layout.RelationGroup) bool { return g.Key == key })
	if i < 0 {
		return errors.New(errors.ErrCodeUnknownGroup, "关系分组 %s 不存在", key)
	}
	groups := slices.Clone(s.in.Relations)
	groups[i].Values = append(slices.Clip(groups[i].Values), span)
	return s.commitRelations(groups, RelationOperation{Type: OpAdd, LabelKey: key, Range: span})
}

func (s *Session) deleteRelation(key string, span layout.RelationSpan) error {
	i := slices.IndexFunc(s.in.Relations, func(g layout.RelationGroup) bool { return g.Key == key })
	if i < 0 {
		return errors.New(errors.ErrCodeUnknownGroup, "关系分组 %s 不存在", key)
	}
	groups := slices.Clone(s.in.Relations)
	groups[i].Values = slices.DeleteFunc(slices.Clone(groups[i].Values), func(v layout.RelationSpan) bool { return v == span })
	if err := s.commitRelations(groups, RelationOperation{Type: OpDelete, LabelKey: key, Range: span}); err != nil {
		return err
	}
	if fn := s.opts.Callbacks.OnDeleteRelation; fn != nil {
		fn(key, span)
	}
	return nil
}

// commitAnnotations 先对新分组布局，成功后才替换会话状态并通知宿主。
func (s *Session) commitAnnotations(groups []layout.AnnotationGroup, op AnnotationOperation) error {
	in := s.in
	in.Annotations = groups
	res, err := s.compute(in, s.opts.UI, s.hidden)
	if err != nil {
		return err
	}
	s.in, s.result = in, res
	if fn := s.opts.Callbacks.OnChangeAnnotations; fn != nil {
		fn(cloneAnnotationGroups(groups), op)
	}
	return nil
}

func (s *Session) commitRelations(groups []layout.RelationGroup, op RelationOperation) error {
	in := s.in
	in.Relations = groups
	res, err := s.compute(in, s.opts.UI, s.hidden)
	if err != nil {
		return err
	}
	s.in, s.result = in, res
	if fn := s.opts.Callbacks.OnChangeRelations; fn != nil {
		fn(cloneRelationGroups(groups), op)
	}
	return nil
}

func (s *Session) kindOf(key string) (LabelKind, bool) {
	for _, g := range s.in.Annotations {
		if g.Key == key {
			return KindAnnotation, true
		}
	}
	for _, g := range s.in.Relations {
		if g.Key == key {
			return KindRelation, true
		}
	}
	return "", false
}

func (s *Session) compute(in layout.Input, ui layout.UIOptions, hidden map[string]bool) (*layout.Result, error) {
	return s.engine.Compute(in, layout.BuildOptions{
		Typesetter: s.opts.Typesetter,
		UI:         ui,
		Hidden:     hidden,
	})
}

func cloneAnnotationGroups(groups []layout.AnnotationGroup) []layout.AnnotationGroup {
	out := slices.Clone(groups)
	for i := range out {
		out[i].Values = slices.Clone(out[i].Values)
	}
	return out
}

func cloneRelationGroups(groups []layout.RelationGroup) []layout.RelationGroup {
	out := slices.Clone(groups)
	for i := range out {
		out[i].Values = slices.Clone(out[i].Values)
	}
	return out
}
