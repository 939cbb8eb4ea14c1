package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ByLCY/marginalia/annotator"
	"github.com/ByLCY/marginalia/layout"
	"github.com/ByLCY/marginalia/renderer"
)

var (
	styleKey  = lipgloss.NewStyle().Bold(true)
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleMiss = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
)

type renderOpts struct {
	inputOpts
	output   string
	format   string
	debug    string
	lanes    bool
	scrollTo string
}

func (c *cli) renderCommand() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Render a document to PDF, SVG or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(args[0], &opts)
		},
	}
	opts.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&opts.output, "out", "o", "", "输出路径，默认与文档同名")
	f.StringVarP(&opts.format, "format", "f", "", "输出格式 pdf|svg|png，默认按输出扩展名推断")
	f.StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	f.BoolVar(&opts.lanes, "debug-lanes", false, "在调试 JSON 中输出各泳道占用区间")
	f.StringVar(&opts.scrollTo, "scroll-to", "", "计算滚动位置：first 或码点偏移")
	return cmd
}

// runRender 串联解析、布局与渲染。
func (c *cli) runRender(path string, opts *renderOpts) error {
	s, err := c.load(path, &opts.inputOpts)
	if err != nil {
		return err
	}
	format, err := c.resolveFormat(opts, s.cfg.Render.Format)
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + "." + string(format)
	}

	s.build.ScrollTo, err = parseScrollTarget(opts.scrollTo)
	if err != nil {
		return err
	}
	s.build.Debug.Lanes = opts.lanes

	result, err := layout.Compute(s.input, s.build)
	if err != nil {
		return err
	}
	c.logger.Debug("layout computed", "summary", result.Summary(), "renderer", s.renderer.String())
	if result.ScrollY != nil {
		c.logger.Info("scroll target", "y", *result.ScrollY)
	}

	if opts.debug != "" {
		if err := writeDebug(result, opts.debug); err != nil {
			return err
		}
		c.logger.Info("wrote layout debug", "path", opts.debug)
	}

	data, err := s.renderer.Render(result, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", output, err)
	}
	c.logger.Info("rendered", "path", output, "format", format, "bytes", len(data))
	return nil
}

// resolveFormat 依次取 --format、输出扩展名、配置文件，最后默认 PDF。
func (c *cli) resolveFormat(opts *renderOpts, configured string) (renderer.Format, error) {
	if opts.format != "" {
		return renderer.ParseFormat(opts.format)
	}
	fallback := renderer.FormatPDF
	if configured != "" {
		f, err := renderer.ParseFormat(configured)
		if err != nil {
			return "", err
		}
		fallback = f
	}
	if opts.output == "" {
		return fallback, nil
	}
	return renderer.FormatFromPath(opts.output, fallback), nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func (c *cli) hitCommand() *cobra.Command {
	var opts inputOpts
	cmd := &cobra.Command{
		Use:   "hit <document> <x> <y>",
		Short: "Report the annotation or relation under a pixel",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("x 不是数字: %w", err)
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("y 不是数字: %w", err)
			}
			return c.runHit(args[0], &opts, x, y)
		},
	}
	opts.register(cmd)
	return cmd
}

func (c *cli) runHit(path string, opts *inputOpts, x, y float64) error {
	s, err := c.load(path, opts)
	if err != nil {
		return err
	}
	sess, err := annotator.New(s.input, annotator.Options{
		UI:         s.build.UI,
		Typesetter: s.build.Typesetter,
		ReadOnly:   true,
	})
	if err != nil {
		return err
	}
	for key := range s.build.Hidden {
		if _, err := sess.ToggleHidden(key); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.stdout, describeToken(sess.ContextMenu(x, y)))
	return nil
}

func describeToken(tok layout.Token) string {
	switch t := tok.(type) {
	case *layout.EnrichedAnnotation:
		return fmt.Sprintf("%s %s [%d, %d] line %d-%d lane %d",
			styleDim.Render("annotation"), styleKey.Render(t.Key), t.Span.Start, t.Span.End,
			t.Position.StartLine, t.Position.EndLine, t.VerticalOffset)
	case *layout.EnrichedRelation:
		return fmt.Sprintf("%s %s [%d, %d] -> [%d, %d] lane %d",
			styleDim.Render("relation"), styleKey.Render(t.Key),
			t.Span.FromStart, t.Span.FromEnd, t.Span.ToStart, t.Span.ToEnd, t.VerticalOffset)
	default:
		return styleMiss.Render("nothing")
	}
}

func (c *cli) breaksCommand() *cobra.Command {
	var opts inputOpts
	cmd := &cobra.Command{
		Use:   "breaks <document>",
		Short: "Print the wrapped lines and their break offsets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.load(args[0], &opts)
			if err != nil {
				return err
			}
			result, err := layout.Compute(s.input, s.build)
			if err != nil {
				return err
			}
			for i, line := range result.Lines {
				fmt.Fprintf(c.stdout, "%s %s %q\n",
					styleDim.Render(fmt.Sprintf("%3d", i)),
					styleKey.Render(fmt.Sprintf("%5d", result.LineBreaks[i])),
					line.Content)
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func (c *cli) legendCommand() *cobra.Command {
	var opts inputOpts
	cmd := &cobra.Command{
		Use:   "legend <document>",
		Short: "List annotation and relation groups with their colors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.load(args[0], &opts)
			if err != nil {
				return err
			}
			result, err := layout.Compute(s.input, s.build)
			if err != nil {
				return err
			}
			for _, entry := range result.Legend {
				fmt.Fprintln(c.stdout, legendLine(entry))
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func legendLine(entry layout.LegendEntry) string {
	swatch := lipgloss.NewStyle().Background(lipgloss.Color(layout.MustColor(entry.Color).Hex())).Render("   ")
	name := styleKey.Render(entry.Name)
	if entry.Hidden {
		name = styleDim.Strikethrough(true).Render(entry.Name)
	}
	return fmt.Sprintf("%s %s %s", swatch, name,
		styleDim.Render(fmt.Sprintf("%s %s ×%d", entry.Kind, entry.Key, entry.Count)))
}
