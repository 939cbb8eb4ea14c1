package layout

import (
	"strings"

	"github.com/ByLCY/marginalia/binding"
	"github.com/ByLCY/marginalia/dsl"
	"github.com/ByLCY/marginalia/errors"
)

// Build 根据文档 AST 与绑定数据完成布局。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	in, err := InputFromDocument(doc, data)
	if err != nil {
		return nil, err
	}
	return NewEngine().Compute(in, opts)
}

// InputFromDocument 把文档中的 meta/options/text/annotations/relations 段落转换为布局输入。
// text 中的 ${path} 与分组中的 from: "path" 从 data 取值。
func InputFromDocument(doc *dsl.Document, data any) (Input, error) {
	if doc == nil {
		return Input{}, errors.New(errors.ErrCodeInvalidDocument, "文档为空")
	}
	in := Input{Meta: collectMeta(doc)}

	opts, err := collectOptions(doc)
	if err != nil {
		return Input{}, err
	}
	in.Options = opts

	var text strings.Builder
	hasText := false
	for _, section := range doc.Sections {
		switch {
		case section.Text != nil:
			hasText = true
			text.WriteString(section.Text.Content())
		case section.Annotations != nil:
			g, err := parseAnnotationGroup(section.Annotations, data)
			if err != nil {
				return Input{}, err
			}
			in.Annotations = append(in.Annotations, g)
		case section.Relations != nil:
			g, err := parseRelationGroup(section.Relations, data)
			if err != nil {
				return Input{}, err
			}
			in.Relations = append(in.Relations, g)
		}
	}
	if !hasText {
		return Input{}, errors.New(errors.ErrCodeInvalidDocument, "文档中缺少 text 段落")
	}
	in.Text = binding.Interpolate(text.String(), data)
	return in, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{
		Creator: "marginalia",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		for _, p := range section.Meta.Properties {
			switch strings.ToLower(p.Key) {
			case "title":
				meta.Title = p.Value.String()
			case "author":
				meta.Author = p.Value.String()
			case "subject":
				meta.Subject = p.Value.String()
			case "creator":
				meta.Creator = p.Value.String()
			case "keywords":
				meta.Keywords = valueToStringSlice(p.Value)
			}
		}
	}
	return meta
}

// collectOptions 先解析 font-size，再解析其余选项，使 em 单位能以字号为基准。
// 文档中写出的选项都视为显式设置，写 0 也会覆盖默认值。
func collectOptions(doc *dsl.Document) (UIOptions, error) {
	var props []*dsl.Property
	for _, section := range doc.Sections {
		if section.Options != nil {
			props = append(props, section.Options.Properties...)
		}
	}

	var out UIOptions
	fontSize := DefaultUIOptions().FontSize
	for _, p := range props {
		if strings.ToLower(p.Key) != OptFontSize.String() {
			continue
		}
		l, err := ParseLength(p.Value.String())
		if err != nil {
			return UIOptions{}, errors.Wrap(errors.ErrCodeInvalidDocument, err, "第 %d 行: options.font-size", p.Pos.Line)
		}
		if l.Unit == UnitEM {
			return UIOptions{}, errors.New(errors.ErrCodeInvalidDocument, "第 %d 行: options.font-size 不能使用 em", p.Pos.Line)
		}
		fontSize = l.ToPX(fontSize)
	}
	for _, p := range props {
		opt, ok := LookupOption(strings.ToLower(p.Key))
		if !ok {
			return UIOptions{}, errors.New(errors.ErrCodeInvalidDocument, "第 %d 行: 未知的选项 %s", p.Pos.Line, p.Key)
		}
		l, err := ParseLength(p.Value.String())
		if err != nil {
			return UIOptions{}, errors.Wrap(errors.ErrCodeInvalidDocument, err, "第 %d 行: options.%s", p.Pos.Line, p.Key)
		}
		out = out.With(opt, l.ToPX(fontSize))
	}
	return out, nil
}

func parseAnnotationGroup(section *dsl.AnnotationsSection, data any) (AnnotationGroup, error) {
	g := AnnotationGroup{Key: section.Key}
	for _, item := range section.Items {
		if item.Span != nil {
			g.Values = append(g.Values, Span{Start: item.Span.Start, End: item.Span.End})
			continue
		}
		p := item.Property
		switch strings.ToLower(p.Key) {
		case "name":
			g.Name = p.Value.String()
		case "color":
			g.Color = p.Value.String()
		case "from":
			spans, err := bindSpans(data, p.Value.String())
			if err != nil {
				return g, errors.Wrap(errors.ErrCodeInvalidDocument, err, "annotations %s", g.Key)
			}
			g.Values = append(g.Values, spans...)
		case "values":
			spans, err := inlineSpans(p.Value)
			if err != nil {
				return g, errors.Wrap(errors.ErrCodeInvalidDocument, err, "annotations %s", g.Key)
			}
			g.Values = append(g.Values, spans...)
		default:
			return g, errors.New(errors.ErrCodeInvalidDocument, "第 %d 行: annotations %s 未知属性 %s", p.Pos.Line, g.Key, p.Key)
		}
	}
	return g, nil
}

func parseRelationGroup(section *dsl.RelationsSection, data any) (RelationGroup, error) {
	g := RelationGroup{Key: section.Key}
	for _, item := range section.Items {
		if l := item.Link; l != nil {
			g.Values = append(g.Values, RelationSpan{FromStart: l.FromStart, FromEnd: l.FromEnd, ToStart: l.ToStart, ToEnd: l.ToEnd})
			continue
		}
		p := item.Property
		switch strings.ToLower(p.Key) {
		case "name":
			g.Name = p.Value.String()
		case "color":
			g.Color = p.Value.String()
		case "directional":
			if p.Value.Bool == nil {
				return g, errors.New(errors.ErrCodeInvalidDocument, "第 %d 行: relations %s 的 directional 需要 true 或 false", p.Pos.Line, g.Key)
			}
			g.Directional = bool(*p.Value.Bool)
		case "from":
			rels, err := bindRelationSpans(data, p.Value.String())
			if err != nil {
				return g, errors.Wrap(errors.ErrCodeInvalidDocument, err, "relations %s", g.Key)
			}
			g.Values = append(g.Values, rels...)
		case "values":
			rels, err := inlineRelationSpans(p.Value)
			if err != nil {
				return g, errors.Wrap(errors.ErrCodeInvalidDocument, err, "relations %s", g.Key)
			}
			g.Values = append(g.Values, rels...)
		default:
			return g, errors.New(errors.ErrCodeInvalidDocument, "第 %d 行: relations %s 未知属性 %s", p.Pos.Line, g.Key, p.Key)
		}
	}
	return g, nil
}

func bindSpans(data any, path string) ([]Span, error) {
	list, err := binding.LookupList(data, path)
	if err != nil {
		return nil, err
	}
	out := make([]Span, 0, len(list))
	for i, item := range list {
		fields, err := intFields(item, "start", "end")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "%s[%d]", path, i)
		}
		out = append(out, Span{Start: fields[0], End: fields[1]})
	}
	return out, nil
}

// bindRelationSpans 读取 data 中 path 处的 [{fromStart, fromEnd, toStart, toEnd}] 数组。
func bindRelationSpans(data any, path string) ([]RelationSpan, error) {
	list, err := binding.LookupList(data, path)
	if err != nil {
		return nil, err
	}
	out := make([]RelationSpan, 0, len(list))
	for i, item := range list {
		f, err := intFields(item, "fromStart", "fromEnd", "toStart", "toEnd")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "%s[%d]", path, i)
		}
		out = append(out, RelationSpan{FromStart: f[0], FromEnd: f[1], ToStart: f[2], ToEnd: f[3]})
	}
	return out, nil
}

func intFields(item any, keys ...string) ([]int, error) {
	out := make([]int, len(keys))
	for i, k := range keys {
		v, ok := binding.Lookup(item, k)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidDocument, "缺少字段 %s", k)
		}
		n, err := binding.Int(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "字段 %s", k)
		}
		out[i] = n
	}
	return out, nil
}

// inlineSpans 解析 values: [ { start: 9; end: 12 } ]。
func inlineSpans(val *dsl.Value) ([]Span, error) {
	objs, err := inlineObjects(val)
	if err != nil {
		return nil, err
	}
	out := make([]Span, 0, len(objs))
	for _, o := range objs {
		f, err := intFields(o, "start", "end")
		if err != nil {
			return nil, err
		}
		out = append(out, Span{Start: f[0], End: f[1]})
	}
	return out, nil
}

func inlineRelationSpans(val *dsl.Value) ([]RelationSpan, error) {
	objs, err := inlineObjects(val)
	if err != nil {
		return nil, err
	}
	out := make([]RelationSpan, 0, len(objs))
	for _, o := range objs {
		f, err := intFields(o, "fromStart", "fromEnd", "toStart", "toEnd")
		if err != nil {
			return nil, err
		}
		out = append(out, RelationSpan{FromStart: f[0], FromEnd: f[1], ToStart: f[2], ToEnd: f[3]})
	}
	return out, nil
}

// inlineObjects 把数组中的内联对象转为 map，值保留为字符串，交给 binding.Int 解析。
func inlineObjects(val *dsl.Value) ([]map[string]any, error) {
	if val == nil || val.List == nil {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "values 需要数组")
	}
	out := make([]map[string]any, 0, len(val.List.Items))
	for i, item := range val.List.Items {
		if item.Record == nil {
			return nil, errors.New(errors.ErrCodeInvalidDocument, "values[%d] 需要 { key: value } 对象", i)
		}
		out = append(out, item.Record.Map())
	}
	return out, nil
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.List != nil {
		out := make([]string, 0, len(val.List.Items))
		for _, item := range val.List.Items {
			if s := item.String(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := val.String(); s != "" {
		return []string{s}
	}
	return nil
}
