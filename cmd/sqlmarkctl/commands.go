package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/sqlmark/pkg/config/xconf"
	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// exitError 表示需要非零退出码但已完成输出的场景。
// 命令内部已完成所有输出，main 只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 表示参数错误，main 映射为退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createCheckCommand(),
		createRenderCommand(),
		createAnnotateCommand(),
	}
}

// createCheckCommand 创建 check 子命令。
func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:    "check",
		Aliases: []string{"k"},
		Usage:   "校验配置文件",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdCheck(cmd.String("config"), os.Stdout)
		},
	}
}

// createRenderCommand 创建 render 子命令。
func createRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Aliases:   []string{"r"},
		Usage:     "按配置渲染注释片段",
		ArgsUsage: "[key=value ...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdRender(cmd.String("config"), cmd.Args().Slice(), os.Stdout)
		},
	}
}

// createAnnotateCommand 创建 annotate 子命令。
func createAnnotateCommand() *cli.Command {
	return &cli.Command{
		Name:      "annotate",
		Aliases:   []string{"a"},
		Usage:     "为 SQL 语句附加注释",
		ArgsUsage: "<sql> [key=value ...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdAnnotate(cmd.String("config"), cmd.Args().Slice(), os.Stdin, os.Stdout)
		},
	}
}

// cmdCheck 校验配置文件并输出摘要。
// 设计决策: 配置无效时返回退出码 1（通过 exitError），
// 使 CI 与部署脚本能直接用退出码判断配置有效性。
func cmdCheck(path string, w io.Writer) error {
	loader, err := xconf.Load(path)
	if err != nil {
		fmt.Fprintf(w, "配置: 无效\n")
		fmt.Fprintf(w, "文件: %s\n", path)
		fmt.Fprintf(w, "详情: %v\n", err)
		return &exitError{code: 1}
	}

	cfg := loader.Config()
	fmt.Fprintf(w, "配置: 有效\n")
	fmt.Fprintf(w, "文件: %s (%s)\n", path, loader.Format())
	fmt.Fprintf(w, "application: %s\n", cfg.Application)
	fmt.Fprintf(w, "prepend: %t\n", cfg.Prepend)
	fmt.Fprintf(w, "cache: %t\n", cfg.Cache)
	fmt.Fprintf(w, "tags (%d):\n", len(cfg.Tags))
	for _, spec := range cfg.Tags {
		fmt.Fprintf(w, "  - %s\n", spec.Key)
	}
	return nil
}

// cmdRender 按配置与给定上下文渲染注释片段。
func cmdRender(path string, args []string, w io.Writer) error {
	annot, s, err := buildContext(path, args)
	if err != nil {
		return err
	}

	comment, err := annot.Render(s)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	fmt.Fprintln(w, comment)
	return nil
}

// cmdAnnotate 为 SQL 附加注释。SQL 为 "-" 时从 stdin 读取。
func cmdAnnotate(path string, args []string, stdin io.Reader, w io.Writer) error {
	if len(args) == 0 {
		return &usageError{msg: "annotate 命令需要指定 SQL 语句（或 \"-\" 从标准输入读取）"}
	}

	sql := args[0]
	if sql == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("读取标准输入失败: %w", err)
		}
		sql = strings.TrimSpace(string(data))
	}

	annot, s, err := buildContext(path, args[1:])
	if err != nil {
		return err
	}

	annotated, err := annot.Annotate(s, sql)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	fmt.Fprintln(w, annotated)
	return nil
}

// buildContext 加载配置并用 key=value 对构造模拟的标签上下文。
func buildContext(path string, pairs []string) (*xmark.Annotator, *xmark.Store, error) {
	values, err := parsePairs(pairs)
	if err != nil {
		return nil, nil, err
	}

	loader, err := xconf.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	annot, err := loader.Annotator()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	s := xmark.NewStore()
	if len(values) > 0 {
		s.Set(values)
	}
	return annot, s, nil
}

// parsePairs 解析 key=value 参数列表。
func parsePairs(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, &usageError{msg: fmt.Sprintf("无效的标签参数 %q，期望 key=value 形式", arg)}
		}
		values[key] = value
	}
	return values, nil
}

// setupSignalHandler 设置信号处理。
// 设计决策: 第一次信号优雅取消，第二次信号强制退出（退出码 130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
