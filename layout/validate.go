package layout

import (
	"github.com/ByLCY/marginalia/errors"
)

// ValidateSpans 检查所有区间满足 0 <= start <= end <= textLen，并拒绝空或重复的分组 key。
func ValidateSpans(textLen int, annotations []AnnotationGroup, relations []RelationGroup) error {
	seen := make(map[string]string, len(annotations)+len(relations))
	checkKey := func(kind, key string) error {
		if key == "" {
			return errors.New(errors.ErrCodeInvalidInput, "%s 分组缺少 key", kind)
		}
		if prev, ok := seen[key]; ok {
			return errors.New(errors.ErrCodeInvalidInput, "分组 key %q 重复（已用于 %s）", key, prev)
		}
		seen[key] = kind
		return nil
	}

	for _, g := range annotations {
		if err := checkKey("annotation", g.Key); err != nil {
			return err
		}
		for i, v := range g.Values {
			if err := checkSpan(textLen, v); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidSpan, err, "批注 %s[%d]", g.Key, i)
			}
		}
	}
	for _, g := range relations {
		if err := checkKey("relation", g.Key); err != nil {
			return err
		}
		for i, v := range g.Values {
			if err := checkSpan(textLen, v.From()); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidSpan, err, "关系 %s[%d] 起点", g.Key, i)
			}
			if err := checkSpan(textLen, v.To()); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidSpan, err, "关系 %s[%d] 终点", g.Key, i)
			}
		}
	}
	return nil
}

func checkSpan(textLen int, s Span) error {
	if s.Start < 0 || s.End < 0 || s.Start > textLen || s.End > textLen {
		return errors.New(errors.ErrCodeInvalidSpan, "区间 [%d, %d] 超出文本范围 [0, %d]", s.Start, s.End, textLen)
	}
	if s.Start > s.End {
		return errors.New(errors.ErrCodeInvalidSpan, "区间起点 %d 大于终点 %d", s.Start, s.End)
	}
	return nil
}
