package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xguard/pkg/observability/xlog"
	"github.com/omeyang/xguard/pkg/observability/xmetrics"
	"github.com/omeyang/xguard/pkg/resilience/xretry"
	"github.com/omeyang/xguard/pkg/security/xfirewall"
)

// WatchCallback 规则文件变更回调。
// 重载成功且指纹变化时 f 为新内容、err 为 nil；重载失败时 f 为 nil。
type WatchCallback func(f *File, err error)

// Watcher 规则文件监视器
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	logger   xlog.Logger
	recorder xmetrics.Recorder
	retry    xretry.Policy

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	done    chan struct{}
	pending sync.WaitGroup

	reloadMu sync.Mutex

	current     atomic.Pointer[File]
	fingerprint atomic.Uint64
}

// Watch 加载 path 并创建监视器。初次加载失败时返回错误。
//
// 返回的 Watcher 需要调用 Start 或 StartAsync 开始监视，Stop 停止监视。
//
//	w, err := xconf.Watch(path, xconf.SwapGuard(guard, logger), xconf.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer w.Stop()
//	w.StartAsync()
func Watch(path string, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	options := defaultWatchOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: failed to create watcher: %w", err)
	}

	// 监视目录而非文件：编辑器保存时可能先删除再创建。
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xconf: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		watcher:  fsWatcher,
		callback: callback,
		debounce: options.debounce,
		logger:   options.logger.With(xlog.Component("xconf"), xlog.Path(path)),
		recorder: options.recorder,
		retry:    options.retry,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	w.current.Store(f)
	w.fingerprint.Store(f.Fingerprint())
	return w, nil
}

// File 返回最近一次成功加载的规则文件。
func (w *Watcher) File() *File {
	return w.current.Load()
}

// Fingerprint 返回最近一次成功加载的指纹。
func (w *Watcher) Fingerprint() uint64 {
	return w.fingerprint.Load()
}

// Start 启动监视，阻塞直到 Stop。
func (w *Watcher) Start() {
	if !w.markRunning() {
		return
	}
	w.run()
}

// StartAsync 在后台 goroutine 中启动监视并立即返回。
func (w *Watcher) StartAsync() {
	if !w.markRunning() {
		return
	}
	go w.run()
}

func (w *Watcher) markRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.ctx.Err() != nil {
		return false
	}
	w.running = true
	return true
}

// Stop 停止监视，返回后不再有回调执行。可重复调用，不能在回调中调用。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return nil
	}
	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.timer = nil
	w.cancel()
	running := w.running
	err := w.watcher.Close()
	w.mu.Unlock()

	if running {
		<-w.done
	}
	w.pending.Wait()
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	// Write: 直接修改；Create / Rename: 原子替换写入
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.pending.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()
		if w.ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

// reload 重新加载文件，指纹不变时不回调。
func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	ctx, span := w.recorder.Start(w.ctx, xmetrics.OpReload)
	f, err := w.load(ctx)
	span.End(err)

	if w.ctx.Err() != nil {
		return
	}
	if err != nil {
		w.logger.Warn(ctx, "rule file reload failed", xlog.Err(err))
		if w.callback != nil {
			w.callback(nil, err)
		}
		return
	}

	fp := f.Fingerprint()
	if fp == w.fingerprint.Load() {
		w.logger.Debug(ctx, "rule file unchanged", xlog.Fingerprint(fp))
		return
	}
	w.current.Store(f)
	w.fingerprint.Store(fp)
	w.recorder.Mutation(ctx, xmetrics.OpReload, f.Len())
	w.logger.Info(ctx, "rule file reloaded", xlog.Fingerprint(fp), xlog.Count(f.Len()))
	if w.callback != nil {
		w.callback(f, nil)
	}
}

// load 读取规则文件，读取失败与语法错误按重试策略重试。
func (w *Watcher) load(ctx context.Context) (*File, error) {
	var f *File
	err := xretry.Do(ctx, w.retry, func(context.Context) error {
		loaded, err := Load(w.path)
		if err != nil {
			if errors.Is(err, ErrLoadFailed) || errors.Is(err, ErrParseFailed) {
				return err
			}
			return xretry.Permanent(err)
		}
		f = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (w *Watcher) handleError(err error) {
	w.logger.Warn(w.ctx, "watch error", xlog.Err(err))
	if w.callback != nil {
		w.callback(nil, fmt.Errorf("xconf: watch error: %w", err))
	}
}

// SwapGuard 返回把新规则文件构建成引擎并替换到 g 中的回调。
// 重载失败或构建失败时保留旧引擎。构建与替换失败记录到 logger（nil 时丢弃）；
// 读取或解析失败已由 Watcher 记录，这里不重复。opts 传给 [File.Build]，
// 作为文件未写明的默认策略与排序模式。
func SwapGuard(g *xfirewall.Guard, logger xlog.Logger, opts ...xfirewall.Option) WatchCallback {
	if logger == nil {
		logger = xlog.Discard()
	}
	logger = logger.With(xlog.Component("xconf"))
	return func(f *File, err error) {
		if err != nil || f == nil {
			return
		}
		ctx := context.Background()
		e, err := f.Build(opts...)
		if err != nil {
			logger.Warn(ctx, "rule engine build failed, keeping previous rules", xlog.Err(err))
			return
		}
		if _, err := g.Swap(ctx, e); err != nil {
			logger.Warn(ctx, "rule engine swap failed", xlog.Err(err))
			return
		}
		logger.Debug(ctx, "rule engine swapped", xlog.Fingerprint(f.Fingerprint()), xlog.Count(e.Len()))
	}
}
