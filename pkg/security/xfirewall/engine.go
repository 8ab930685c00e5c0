package xfirewall

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/omeyang/xguard/pkg/context/xclientip"
	"github.com/omeyang/xguard/pkg/util/xnet"
)

// universal 是默认策略对应的全量范围，容量 2^32。
var universal = xnet.MustParseRange("*.*.*.*")

// Engine 是规则判定引擎。
//
// 规则按容量降序排列（容量相同则先插入者在前），判定时依次匹配，
// 最后一个命中的规则决定结果，即"最小包含范围获胜"。
// 默认策略以全量规则 *.*.*.* 的形式始终存在于规则集中。
//
// Engine 不加锁，所有方法必须由调用方串行调用；多 goroutine 共享时使用 [Guard]。
// 零值不可用（没有解析器，也没有全量规则），必须通过 [New] 创建。
type Engine struct {
	def      Policy
	mode     SortMode
	resolver xclientip.Resolver
	handler  HandlerFunc

	rules []Rule
	seq   uint64
	dirty bool
	last  Verdict
}

// New 创建引擎，初始规则集只包含默认策略的全量规则。
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	e := &Engine{
		mode:     o.mode,
		resolver: o.resolver,
		handler:  o.handler,
	}
	e.reset(o.def)
	return e
}

func (e *Engine) reset(p Policy) {
	e.def = p
	e.rules = []Rule{{
		Range:    universal,
		Policy:   p,
		Capacity: universal.Capacity(),
		Fallback: true,
	}}
	e.seq = 1
	e.dirty = false
	e.last = defaultVerdict(p)
}

// Reset 清空所有规则，以策略 p 重建全量规则，并把当前判定恢复为默认状态。
// p 为 PolicyUndefined 时返回 ErrUndefinedPolicy，引擎不变。
func (e *Engine) Reset(p Policy) error {
	if !p.IsValid() {
		return ErrUndefinedPolicy
	}
	e.reset(p)
	return nil
}

// SetDefault 更换默认策略：全量规则改为策略 p，其他规则保留，
// 当前判定恢复为新的默认状态。
func (e *Engine) SetDefault(p Policy) error {
	if !p.IsValid() {
		return ErrUndefinedPolicy
	}
	e.def = p
	for i := range e.rules {
		if e.rules[i].Fallback {
			e.rules[i].Policy = p
		}
	}
	e.last = defaultVerdict(p)
	return nil
}

// Add 存储一条已解析的规则。
func (e *Engine) Add(r xnet.Range, p Policy) error {
	if !p.IsValid() {
		return ErrUndefinedPolicy
	}
	if !r.IsValid() {
		return fmt.Errorf("%w: zero range", ErrMalformedRange)
	}
	e.insert(Rule{Range: r, Policy: p, Capacity: r.Capacity()})
	return nil
}

// AddRange 解析并存储一条规则。失败时引擎不变。
func (e *Engine) AddRange(spec string, p Policy) error {
	if !p.IsValid() {
		return ErrUndefinedPolicy
	}
	r, err := xnet.ParseRange(spec)
	if err != nil {
		return err
	}
	e.insert(Rule{Range: r, Policy: p, Capacity: r.Capacity()})
	return nil
}

// AddRanges 按顺序逐条存储规则。
//
// 注意：不是原子操作。遇到第一条无法解析的范围时返回错误，
// 在它之前的规则已经生效；错误信息包含失败项的下标。
func (e *Engine) AddRanges(specs []string, p Policy) error {
	if !p.IsValid() {
		return ErrUndefinedPolicy
	}
	for i, spec := range specs {
		if err := e.AddRange(spec, p); err != nil {
			return fmt.Errorf("xfirewall: range [%d]: %w", i, err)
		}
	}
	return nil
}

// AddAllowed 以 Allow 策略添加规则，语义同 [Engine.AddRanges]。
func (e *Engine) AddAllowed(specs ...string) error {
	return e.AddRanges(specs, Allow)
}

// AddForbidden 以 Forbid 策略添加规则，语义同 [Engine.AddRanges]。
func (e *Engine) AddForbidden(specs ...string) error {
	return e.AddRanges(specs, Forbid)
}

func (e *Engine) insert(r Rule) {
	r.Seq = e.seq
	e.seq++
	if e.mode == EagerSort {
		i, _ := slices.BinarySearchFunc(e.rules, r, compareRules)
		e.rules = slices.Insert(e.rules, i, r)
		return
	}
	e.rules = append(e.rules, r)
	e.dirty = true
}

func (e *Engine) ensureSorted() {
	if !e.dirty {
		return
	}
	slices.SortFunc(e.rules, compareRules)
	e.dirty = false
}

// Validate 解析 addr 并判定。addr 不是合法 IPv4 时返回 ErrInvalidAddress，当前判定不变。
func (e *Engine) Validate(addr string) (Verdict, error) {
	a, err := xnet.ParseAddr4(addr)
	if err != nil {
		return Verdict{}, err
	}
	return e.ValidateAddr(a)
}

// ValidateAddr 判定 addr，结果同时成为当前判定。
// IPv4-mapped IPv6 按 IPv4 处理，其他非 IPv4 地址返回 ErrInvalidAddress。
func (e *Engine) ValidateAddr(addr netip.Addr) (Verdict, error) {
	v, ok := xnet.AddrToUint32(addr)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	e.ensureSorted()
	e.last = e.resolve(addr.Unmap(), v)
	return e.last, nil
}

// resolve 从最具体的规则开始逆序扫描，第一个命中者即正序扫描中的最后一个命中者。
func (e *Engine) resolve(addr netip.Addr, v uint32) Verdict {
	for i := len(e.rules) - 1; i >= 0; i-- {
		if e.rules[i].Range.ContainsUint32(v) {
			return matchedVerdict(addr, e.rules[i])
		}
	}
	verdict := defaultVerdict(e.def)
	verdict.Address = addr
	return verdict
}

// Verdict 返回当前判定；尚未判定时为默认策略对应的状态。
func (e *Engine) Verdict() Verdict {
	return e.last
}

// IsAllowed 报告当前判定是否放行。
func (e *Engine) IsAllowed() bool {
	return e.last.Allowed
}

// IsForbidden 报告当前判定是否拒绝。
func (e *Engine) IsForbidden() bool {
	return e.last.Forbidden
}

// Rules 返回按优先级排列的规则副本，最宽泛的在前。
func (e *Engine) Rules() []Rule {
	e.ensureSorted()
	return slices.Clone(e.rules)
}

// Len 返回规则条数，包含全量规则。
func (e *Engine) Len() int {
	return len(e.rules)
}

// Default 返回默认策略。
func (e *Engine) Default() Policy {
	return e.def
}

// SortMode 返回构造时选定的排序模式。
func (e *Engine) SortMode() SortMode {
	return e.mode
}
