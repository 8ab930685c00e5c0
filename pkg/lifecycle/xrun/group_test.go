package xrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/omeyang/xguard/pkg/observability/xlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGroup_Empty(t *testing.T) {
	g, _ := NewGroup(context.Background())
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestGroup_SingleTask(t *testing.T) {
	var executed atomic.Bool
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if !executed.Load() {
		t.Error("task was not executed")
	}
}

func TestGroup_TaskErrorCancelsOthers(t *testing.T) {
	var stopped atomic.Bool
	g, ctx := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Store(true)
		return ctx.Err()
	})
	g.Go(func(ctx context.Context) error {
		return errors.New("trigger")
	})

	if err := g.Wait(); err == nil || err.Error() != "trigger" {
		t.Errorf("expected 'trigger' error, got %v", err)
	}
	if ctx.Err() == nil {
		t.Error("context should be canceled")
	}
	if !stopped.Load() {
		t.Error("task was not stopped")
	}
}

func TestGroup_CancelCause(t *testing.T) {
	manualErr := errors.New("manual cancel")
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(manualErr)

	if err := g.Wait(); !errors.Is(err, manualErr) {
		t.Errorf("expected manual cancel error, got %v", err)
	}
}

func TestGroup_CancelNil(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(nil)
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestGroup_CauseKeptWhenTasksReturnNil(t *testing.T) {
	cause := errors.New("shutdown")
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	g.Cancel(cause)
	if err := g.Wait(); !errors.Is(err, cause) {
		t.Errorf("expected cause, got %v", err)
	}
}

func TestGroup_ParentCancelFiltered(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestGroup_InternalCanceledNotFiltered(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(context.Context) error {
		return context.Canceled
	})
	if err := g.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGroup_NilContextAndFunc(t *testing.T) {
	//nolint:staticcheck // 验证 nil context 归一化
	g, ctx := NewGroup(nil)
	if ctx == nil {
		t.Fatal("context should not be nil")
	}
	if g.Context() != ctx {
		t.Error("Context() should return the group context")
	}
	g.Go(nil)
	if err := g.Wait(); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}

func TestGroup_GoWithName(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cleanup() }()

	g, _ := NewGroup(context.Background(), WithLogger(logger), WithName("guard"))
	g.GoWithName("ok", func(context.Context) error { return nil })
	g.GoWithName("nil", nil)
	if err := g.Wait(); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}

	g, _ = NewGroup(context.Background(), WithLogger(logger), WithName("guard"))
	g.GoWithName("broken", func(context.Context) error { return errors.New("boom") })
	_ = g.Wait()

	out := buf.String()
	for _, want := range []string{"service starting", "service stopped", "service exited with error", "group=guard", "service=broken"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_SignalError(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigCh)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, nil, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		var sigErr *SignalError
		if !errors.As(err, &sigErr) {
			t.Fatalf("expected SignalError, got %v", err)
		}
		if sigErr.Signal != syscall.SIGTERM {
			t.Errorf("expected SIGTERM, got %v", sigErr.Signal)
		}
		if !errors.Is(err, ErrSignal) {
			t.Error("error should match ErrSignal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Run to return")
	}
}

func TestRun_ReturnsWhenTasksFinish(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), []Option{WithSignals([]os.Signal{syscall.SIGUSR2})},
			func(context.Context) error { return nil },
			func(context.Context) error { return nil },
		)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after tasks finished")
	}
}

func TestRun_TaskError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), []Option{WithoutSignalHandler()},
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		func(context.Context) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, nil, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRun_NilTask(t *testing.T) {
	err := Run(context.Background(), []Option{WithoutSignalHandler()}, nil)
	if !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}

func TestSignalError_Error(t *testing.T) {
	if got := (&SignalError{Signal: syscall.SIGINT}).Error(); got != "received signal interrupt" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&SignalError{}).Error(); got != "received signal <nil>" {
		t.Errorf("Error() = %q", got)
	}
}

func TestOptions(t *testing.T) {
	o := defaultOptions()
	WithLogger(nil)(o)
	WithName("")(o)
	if o.logger == nil || o.name != "xrun" {
		t.Errorf("empty options should be ignored: %+v", o)
	}

	signals := []os.Signal{syscall.SIGINT}
	WithSignals(signals)(o)
	signals[0] = syscall.SIGKILL
	if o.signals[0] != syscall.SIGINT {
		t.Error("WithSignals should copy its input")
	}

	if got := DefaultSignals(); len(got) != 4 {
		t.Errorf("DefaultSignals() = %v", got)
	}
}
