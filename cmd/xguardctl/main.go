// xguardctl 是 IPv4 访问规则的命令行工具。
//
// 用法:
//
//	xguardctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	--log-level    日志级别 (默认: warn)
//	--log-format   日志格式 text 或 json (默认: text)
//
// 命令:
//
//	check <addr...>   判定地址是否放行
//	rules             按优先级列出规则
//	parse <range...>  解析范围表示法
//	watch             监视规则文件，变更后重新判定
//	help              显示帮助信息
//
// 规则来源（check、rules、watch 共用）:
//
//	-r, --rules    规则文件（.yaml/.yml/.json）
//	-a, --allow    追加放行范围，可重复
//	-f, --forbid   追加禁止范围，可重复
//	-d, --default  覆盖默认策略
//	--sort         覆盖排序模式 (eager/deferred)
//
// 退出码:
//
//	0: 命令执行成功（check 命令: 全部地址放行）
//	1: 命令执行失败或存在被禁止的地址（check 命令）
//	2: 参数错误（无效范围、缺少必需参数、未知命令等）
//
// 示例:
//
//	xguardctl check -r rules.yaml 10.0.0.1 192.168.1.20
//	xguardctl check -d allow -f 10.0.0.0/8 10.1.2.3
//	xguardctl rules -r rules.yaml --json
//	xguardctl parse 192.168.0.* 10.0.0.5-10.0.0.9
//	xguardctl watch -r rules.yaml 10.0.0.1
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
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xguardctl",
		Usage:   "IPv4 访问规则命令行工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: "text",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
		Description: `xguardctl 按"最具体范围优先"的规则判定 IPv4 地址。

范围表示法:
  192.168.0.42                 单个地址
  192.168.0.0/24               CIDR
  192.168.0.10-192.168.0.50    显式范围
  192.168.*.*                  通配符（* 占据整个八位段）

同等具体的范围，后加入者优先；规则文件中依次加入 allow、forbid、rules 段。`,
	}
}

func run(args []string) int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	if err := app.Run(ctx, args); err != nil {
		return exitCode(app, err)
	}
	return 0
}

// exitCode 把命令错误映射为退出码并输出错误信息。
func exitCode(app *cli.Command, err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(app.ErrWriter, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		// flag 解析器已输出错误详情
		return 2
	}
	fmt.Fprintf(app.ErrWriter, "错误: %v\n", err)
	return 1
}
