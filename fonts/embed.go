package fonts

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
)

// Builtin 是内置等宽字体的名称。
const Builtin = "embed:lmmono10"

// Mono 返回内置的 Latin Modern Mono 10 Regular 字体数据。
func Mono() []byte { return lmmono10regular.TTF }

// Load 返回字体的字节数据：空串或 "embed:lmmono10" 使用内置字体，其余视为文件路径。
func Load(name string) ([]byte, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == Builtin {
		return Mono(), nil
	}
	if strings.HasPrefix(name, "embed:") {
		return nil, fmt.Errorf("未知的内置字体 %s", name)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", name, err)
	}
	return data, nil
}
