package renderer

import (
	"path/filepath"
	"strings"

	"github.com/ByLCY/marginalia/errors"
	"github.com/ByLCY/marginalia/layout"
)

// Format 是输出文件格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Renderer 将布局结果输出为最终文件。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(result *layout.Result, format Format) ([]byte, error)
}

// ParseFormat 解析格式名，大小写不敏感。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "不支持的输出格式 %q（可选 pdf、svg、png）", s)
	}
}

// FormatFromPath 根据文件扩展名推断格式，无法推断时返回 fallback。
func FormatFromPath(path string, fallback Format) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return fallback
}
