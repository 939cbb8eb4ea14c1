package main

import (
	"github.com/BurntSushi/toml"

	"github.com/ByLCY/marginalia/errors"
	"github.com/ByLCY/marginalia/layout"
)

// config 对应 --config 指定的 TOML 文件：
//
//	hidden = ["time"]
//
//	[options]
//	font-size = 18
//	width = 480
//
//	[render]
//	font = "fonts/mono.ttf"
//	format = "svg"
//	resolution = 8
type config struct {
	Options layout.UIOptions `toml:"options"`
	Render  renderConfig     `toml:"render"`
	Hidden  []string         `toml:"hidden"`
}

type renderConfig struct {
	Font       string  `toml:"font"`
	Format     string  `toml:"format"`
	Resolution float64 `toml:"resolution"` // PNG 每毫米点数
}

// loadConfig 读取配置，path 为空时返回零值；未知键视为错误。
func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, errors.Wrap(errors.ErrCodeInvalidOptions, err, "读取配置 %s 失败", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, errors.New(errors.ErrCodeInvalidOptions, "配置 %s 含未知键 %s", path, undecoded[0].String())
	}
	// 文件中写出的 0 同样视为显式设置
	for _, f := range layout.Options() {
		if meta.IsDefined("options", f.String()) {
			cfg.Options = cfg.Options.With(f, cfg.Options.Get(f))
		}
	}
	// 未写出的字段由默认值补齐
	if err := layout.DefaultUIOptions().Merge(cfg.Options).Validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}
