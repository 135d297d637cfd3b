// sqlmarkctl 是 sqlmark 配置的命令行调试工具。
//
// 用法:
//
//	sqlmarkctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径 (默认: sqlmark.yaml)
//
// 命令:
//
//	check                        校验配置文件
//	render [key=value ...]       按配置渲染注释片段
//	annotate <sql> [key=value ...]  为 SQL 语句附加注释
//	help                         显示帮助信息
//
// render 与 annotate 接受若干 key=value 对，模拟执行单元上下文中的
// 标签值；配置中声明但未提供值的标签按缺失处理（不渲染）。
// annotate 的 SQL 参数为 "-" 时从标准输入读取。
//
// 退出码:
//
//	0: 命令执行成功（check 命令: 配置有效）
//	1: 命令执行失败或配置无效（check 命令）
//	2: 参数错误（非法 key=value、缺少必需参数、未知命令等）
//
// 示例:
//
//	sqlmarkctl -c app.yaml check                          # 校验配置
//	sqlmarkctl -c app.yaml render controller=users        # 渲染注释
//	sqlmarkctl -c app.yaml annotate "SELECT 1" action=show
//	echo "SELECT * FROM users" | sqlmarkctl annotate -    # 从 stdin 读取 SQL
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "sqlmarkctl",
		Usage:   "sqlmark 配置调试工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				Value:   "sqlmark.yaml",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Description: `sqlmarkctl 读取 sqlmark 的 YAML/JSON 配置，在本地复现注释
渲染结果，用于排查标签顺序、转义与配置热更新问题。

主要命令:
  check               校验配置文件，输出标签列表与缓存设置
  render              按配置与给定的 key=value 上下文渲染注释片段
  annotate            为 SQL 附加注释（prepend 配置同样生效）`,
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandler(cancel)

	if err := app.Run(ctx, os.Args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}
