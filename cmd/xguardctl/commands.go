package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xguard/pkg/config/xconf"
	"github.com/omeyang/xguard/pkg/lifecycle/xrun"
	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/observability/xmetrics"
	"github.com/omeyang/xguard/pkg/security/xfirewall"
	"github.com/omeyang/xguard/pkg/util/xnet"
)

// exitError 表示需要非零退出码但已完成输出的场景。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 表示参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 产生的参数错误（未知 flag、缺少 flag 值等）。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"flag needs an argument",
		"invalid value",
		"No help topic for",
		"Required flag",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}

const (
	defaultConcurrency = 8
	watchCacheSize     = 1024
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createCheckCommand(),
		createRulesCommand(),
		createParseCommand(),
		createWatchCommand(),
	}
}

// sourceFlags 是 check 与 rules 共用的规则来源参数。
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "rules",
			Aliases: []string{"r"},
			Usage:   "规则文件（.yaml/.yml/.json）",
		},
		&cli.StringSliceFlag{
			Name:    "allow",
			Aliases: []string{"a"},
			Usage:   "追加放行范围，可重复",
		},
		&cli.StringSliceFlag{
			Name:    "forbid",
			Aliases: []string{"f"},
			Usage:   "追加禁止范围，可重复",
		},
		&cli.StringFlag{
			Name:    "default",
			Aliases: []string{"d"},
			Usage:   "覆盖默认策略 (allow/forbid)",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "覆盖排序模式 (eager/deferred)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "以 JSON 输出",
		},
	}
}

// ruleSource 描述从命令行组装引擎所需的全部输入。
type ruleSource struct {
	path   string
	allow  []string
	forbid []string
	def    string
	sort   string
}

func sourceFromCommand(cmd *cli.Command) ruleSource {
	return ruleSource{
		path:   cmd.String("rules"),
		allow:  cmd.StringSlice("allow"),
		forbid: cmd.StringSlice("forbid"),
		def:    cmd.String("default"),
		sort:   cmd.String("sort"),
	}
}

// build 依次加入规则文件与命令行范围。命令行范围在文件之后加入。
func (s ruleSource) build() (*xfirewall.Engine, error) {
	if s.def != "" {
		if _, err := xfirewall.ParsePolicy(s.def); err != nil {
			return nil, usagef("--default: %v", err)
		}
	}
	if _, err := xfirewall.ParseSortMode(s.sort); err != nil {
		return nil, usagef("--sort: %v", err)
	}

	f := &xconf.File{}
	if s.path != "" {
		loaded, err := xconf.Load(s.path)
		if err != nil {
			return nil, fmt.Errorf("加载规则文件失败: %w", err)
		}
		f = loaded
	}
	if s.def != "" {
		f.Default = s.def
	}
	if s.sort != "" {
		f.Sort = s.sort
	}

	e, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("构建规则失败: %w", err)
	}
	if err := e.AddRanges(s.allow, xfirewall.Allow); err != nil {
		return nil, usagef("--allow: %v", err)
	}
	if err := e.AddRanges(s.forbid, xfirewall.Forbid); err != nil {
		return nil, usagef("--forbid: %v", err)
	}
	return e, nil
}

// newLogger 按全局参数创建日志，输出到 stderr。
func newLogger(cmd *cli.Command) (xlog.Logger, func() error, error) {
	root := cmd.Root()
	logger, cleanup, err := xlog.New().
		SetOutput(root.ErrWriter).
		SetLevelString(root.String("log-level")).
		SetFormat(root.String("log-format")).
		Build()
	if err != nil {
		return nil, nil, usagef("%v", err)
	}
	return logger, cleanup, nil
}

// newGuard 创建带日志与 OTel 指标的 Guard。
func newGuard(e *xfirewall.Engine, logger xlog.Logger, opts ...xfirewall.GuardOption) (*xfirewall.Guard, error) {
	recorder, err := xmetrics.NewOTelRecorder(xmetrics.WithInstrumentationName("xguardctl"))
	if err != nil {
		return nil, err
	}
	all := append([]xfirewall.GuardOption{
		xfirewall.WithLogger(logger),
		xfirewall.WithRecorder(recorder),
	}, opts...)
	return xfirewall.NewGuard(e, all...)
}

// createCheckCommand 创建 check 子命令。
func createCheckCommand() *cli.Command {
	flags := append(sourceFlags(), &cli.IntFlag{
		Name:    "concurrency",
		Aliases: []string{"c"},
		Usage:   "并发判定数",
		Value:   defaultConcurrency,
	})
	return &cli.Command{
		Name:      "check",
		Aliases:   []string{"c"},
		Usage:     "判定地址是否放行，存在禁止的地址时退出码为 1",
		ArgsUsage: "<addr> [addr...]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdCheck(ctx, cmd, sourceFromCommand(cmd), cmd.Args().Slice(),
				cmd.Int("concurrency"), cmd.Bool("json"))
		},
	}
}

// checkResult 是单个地址的判定结果。
type checkResult struct {
	Address string              `json:"address"`
	Policy  string              `json:"policy,omitempty"`
	Rule    *xfirewall.WireRule `json:"rule,omitempty"`
	Error   string              `json:"error,omitempty"`

	verdict xfirewall.Verdict
	err     error
}

func (r checkResult) forbidden() bool {
	return r.err != nil || r.verdict.Forbidden
}

// cmdCheck 并发判定 addrs，按输入顺序输出。
func cmdCheck(ctx context.Context, cmd *cli.Command, src ruleSource, addrs []string, concurrency int, asJSON bool) error {
	if len(addrs) == 0 {
		return usagef("check 命令需要至少一个地址")
	}
	if concurrency <= 0 {
		return usagef("--concurrency 必须为正数")
	}
	e, err := src.build()
	if err != nil {
		return err
	}
	logger, cleanup, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }() //nolint:errcheck // stderr 无需关闭
	guard, err := newGuard(e, logger)
	if err != nil {
		return err
	}

	results, err := checkAll(ctx, guard, addrs, concurrency)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if err := writeResults(w, results, asJSON); err != nil {
		return err
	}
	for _, r := range results {
		if r.forbidden() {
			return &exitError{code: 1}
		}
	}
	return nil
}

func checkAll(ctx context.Context, guard *xfirewall.Guard, addrs []string, concurrency int) ([]checkResult, error) {
	results := make([]checkResult, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := guard.Validate(gctx, addr)
			results[i] = newCheckResult(addr, v, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newCheckResult(addr string, v xfirewall.Verdict, err error) checkResult {
	r := checkResult{Address: addr, verdict: v, err: err}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Policy = v.Policy().String()
	if v.Matched {
		wire := v.Rule.Wire()
		r.Rule = &wire
	}
	return r
}

func writeResults(w io.Writer, results []checkResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, results)
	}
	for _, r := range results {
		if r.err != nil {
			if _, err := fmt.Fprintf(w, "%s invalid: %v\n", r.Address, r.err); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(w, r.verdict); err != nil {
			return err
		}
	}
	return nil
}

// createRulesCommand 创建 rules 子命令。
func createRulesCommand() *cli.Command {
	return &cli.Command{
		Name:    "rules",
		Aliases: []string{"ls"},
		Usage:   "按优先级（从低到高）列出规则",
		Flags:   sourceFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdRules(cmd.Root().Writer, sourceFromCommand(cmd), cmd.Bool("json"))
		},
	}
}

func cmdRules(w io.Writer, src ruleSource, asJSON bool) error {
	e, err := src.build()
	if err != nil {
		return err
	}
	rules := e.Rules()
	if asJSON {
		wire := make([]xfirewall.WireRule, 0, len(rules))
		for _, r := range rules {
			wire = append(wire, r.Wire())
		}
		return writeJSON(w, wire)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SEQ\tPOLICY\tRANGE\tKIND\tCAPACITY\n")
	for _, r := range rules {
		kind := r.Range.Kind().String()
		if r.Fallback {
			kind += " (default)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", r.Seq, r.Policy, r.Range, kind, r.Capacity)
	}
	return tw.Flush()
}

// createParseCommand 创建 parse 子命令。
func createParseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Aliases:   []string{"p"},
		Usage:     "解析范围表示法，输出边界、容量与等价 CIDR",
		ArgsUsage: "<range> [range...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "以 JSON 输出"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdParse(cmd.Root().Writer, cmd.Args().Slice(), cmd.Bool("json"))
		},
	}
}

// parsedRange 是 parse 命令的 JSON 输出项。
type parsedRange struct {
	xnet.WireRange
	Contiguous bool     `json:"contiguous"`
	Prefixes   []string `json:"prefixes,omitempty"`
}

func cmdParse(w io.Writer, specs []string, asJSON bool) error {
	if len(specs) == 0 {
		return usagef("parse 命令需要至少一个范围")
	}
	ranges, err := xnet.ParseRanges(specs)
	if err != nil {
		return usagef("%v", err)
	}

	out := make([]parsedRange, 0, len(ranges))
	for _, r := range ranges {
		p := parsedRange{WireRange: r.Wire(), Contiguous: r.Contiguous()}
		for _, prefix := range r.Prefixes() {
			p.Prefixes = append(p.Prefixes, prefix.String())
		}
		out = append(out, p)
	}
	if asJSON {
		return writeJSON(w, out)
	}
	for _, p := range out {
		line := fmt.Sprintf("%s\t%s\t%s-%s\tcapacity=%d", p.Notation, p.Kind, p.Start, p.End, p.Capacity)
		if len(p.Prefixes) > 0 {
			line += "\tprefixes=" + strings.Join(p.Prefixes, ",")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// createWatchCommand 创建 watch 子命令。
func createWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "监视规则文件，每次变更后重新判定给定地址",
		ArgsUsage: "[addr...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "rules",
				Aliases:  []string{"r"},
				Usage:    "规则文件（.yaml/.yml/.json）",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "防抖时间",
				Value: 100 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdWatch(ctx, cmd, cmd.String("rules"), cmd.Duration("debounce"), cmd.Args().Slice())
		},
	}
}

// cmdWatch 阻塞直到 ctx 取消或收到信号。
func cmdWatch(ctx context.Context, cmd *cli.Command, path string, debounce time.Duration, addrs []string) error {
	if path == "" {
		return usagef("watch 命令需要 --rules")
	}
	e, err := ruleSource{path: path}.build()
	if err != nil {
		return err
	}
	logger, cleanup, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }() //nolint:errcheck // stderr 无需关闭
	// 每次重载后重复判定同一组地址，重载时缓存随规则变更清空
	guard, err := newGuard(e, logger, xfirewall.WithCacheSize(watchCacheSize))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	report := func(ctx context.Context) {
		if len(addrs) == 0 {
			return
		}
		results, err := checkAll(ctx, guard, addrs, defaultConcurrency)
		if err != nil {
			return
		}
		_ = writeResults(w, results, false) //nolint:errcheck // 输出失败不影响监视
	}

	swap := xconf.SwapGuard(guard, logger)
	watcher, err := xconf.Watch(path, func(f *xconf.File, err error) {
		swap(f, err)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "reloaded %016x (%d rules)\n", f.Fingerprint(), f.Len())
		report(ctx)
	}, xconf.WithDebounce(debounce), xconf.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("监视规则文件失败: %w", err)
	}

	report(ctx)
	err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("xguardctl")},
		func(ctx context.Context) error {
			watcher.StartAsync()
			<-ctx.Done()
			return watcher.Stop()
		})
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupSignalHandler 设置信号处理。
// 第一次信号优雅取消，第二次信号强制退出（退出码 130 = 128 + SIGINT）。
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
