package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/marginalia/dsl"
	"github.com/ByLCY/marginalia/errors"
	"github.com/ByLCY/marginalia/layout"
	canvasrenderer "github.com/ByLCY/marginalia/renderer/canvas"
)

// cli 保存各子命令共享的输出与日志。
type cli struct {
	stdout  io.Writer
	logger  *log.Logger
	verbose bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout: stdout,
		logger: log.NewWithOptions(stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           log.InfoLevel,
		}),
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "marginalia",
		Short:         "Lay out and render annotations and relations over wrapped text",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.logger.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.hitCommand())
	root.AddCommand(c.breaksCommand())
	root.AddCommand(c.legendCommand())
	return root
}

// inputOpts 是读取文档并布局所需的公共参数。
type inputOpts struct {
	data      string
	config    string
	width     float64
	charWidth float64
	font      string
	hidden    []string

	cmd *cobra.Command
}

func (o *inputOpts) register(cmd *cobra.Command) {
	o.cmd = cmd
	f := cmd.Flags()
	f.StringVarP(&o.data, "data", "d", "", "绑定到文档的 JSON 数据文件")
	f.StringVarP(&o.config, "config", "c", "", "TOML 配置文件")
	f.Float64VarP(&o.width, "width", "w", 0, "容器宽度（px），覆盖配置与文档")
	f.Float64Var(&o.charWidth, "char-width", 0, "字符宽度（px），为 0 时按字体测量")
	f.StringVar(&o.font, "font", "", "等宽字体文件，默认使用内置 Latin Modern Mono")
	f.StringSliceVar(&o.hidden, "hide", nil, "不参与布局的分组 key，可重复")
}

// ui 返回命令行给出的绘制参数，显式传入的 0 也会覆盖配置与文档。
func (o *inputOpts) ui() layout.UIOptions {
	var ui layout.UIOptions
	for _, f := range []struct {
		flag string
		opt  layout.Option
		v    float64
	}{
		{"width", layout.OptContainerWidth, o.width},
		{"char-width", layout.OptCharWidth, o.charWidth},
	} {
		if f.v != 0 || (o.cmd != nil && o.cmd.Flags().Changed(f.flag)) {
			ui = ui.With(f.opt, f.v)
		}
	}
	return ui
}

// session 是一次命令执行中加载好的文档、配置与渲染器。
type session struct {
	input    layout.Input
	cfg      config
	renderer *canvasrenderer.Renderer
	build    layout.BuildOptions
}

// load 串联配置、数据、解析与布局参数，不执行布局。
func (c *cli) load(path string, o *inputOpts) (*session, error) {
	cfg, err := loadConfig(o.config)
	if err != nil {
		return nil, err
	}
	if o.config != "" {
		c.logger.Debug("loaded config", "path", o.config)
	}

	data, err := readData(o.data)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开文档 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "解析文档 %s 失败", path)
	}
	c.logger.Debug("parsed document", "name", doc.Name, "version", doc.Version, "sections", len(doc.Sections))

	in, err := layout.InputFromDocument(doc, data)
	if err != nil {
		return nil, err
	}
	// 优先级：默认值 < 配置文件 < 文档 options < 命令行
	in.Options = cfg.Options.Merge(in.Options)

	font := o.font
	if font == "" {
		font = cfg.Render.Font
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		Font:       font,
		Resolution: cfg.Render.Resolution,
	})

	hidden := make(map[string]bool)
	for _, key := range append(cfg.Hidden, o.hidden...) {
		if key = strings.TrimSpace(key); key != "" {
			hidden[key] = true
		}
	}

	return &session{
		input:    in,
		cfg:      cfg,
		renderer: r,
		build: layout.BuildOptions{
			Typesetter: r,
			UI:         o.ui(),
			Hidden:     hidden,
		},
	}, nil
}

func readData(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件 %s 失败: %w", path, err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "解析数据 JSON %s 失败", path)
	}
	return data, nil
}

// parseScrollTarget 解析 --scroll-to：空串不滚动，"first" 滚动到第一个批注，否则为码点偏移。
func parseScrollTarget(s string) (*int, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return nil, nil
	case "first":
		first := -1
		return &first, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "--scroll-to 需要 first 或非负整数，当前为 %q", s)
	}
	return &n, nil
}
