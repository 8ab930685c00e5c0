package xfirewall

import (
	"cmp"
	"fmt"
	"net/netip"

	"github.com/omeyang/xguard/pkg/util/xnet"
)

// Rule 是一条已存储的规则。
//
// Capacity 在插入时计算并缓存；Seq 是引擎内单调递增的插入序号，
// 用于容量相同时的决胜。Fallback 标记由默认策略生成的全量规则 *.*.*.*。
type Rule struct {
	Range    xnet.Range
	Policy   Policy
	Capacity uint64
	Seq      uint64
	Fallback bool
}

// Contains 报告 addr 是否落在规则范围内。
func (r Rule) Contains(addr netip.Addr) bool {
	return r.Range.Contains(addr)
}

// String 返回 "<policy> <notation>"，如 "allow 192.168.0.0/24"。
func (r Rule) String() string {
	return r.Policy.String() + " " + r.Range.String()
}

// WireRule 是规则的序列化形式，用于诊断输出。
type WireRule struct {
	Range    xnet.WireRange `json:"range" yaml:"range"`
	Policy   Policy         `json:"policy" yaml:"policy"`
	Seq      uint64         `json:"seq" yaml:"seq"`
	Fallback bool           `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Wire 返回 r 的序列化形式。
func (r Rule) Wire() WireRule {
	return WireRule{Range: r.Range.Wire(), Policy: r.Policy, Seq: r.Seq, Fallback: r.Fallback}
}

// compareRules 定义优先级顺序：容量降序，容量相同时先插入者在前。
// 判定时最后一个命中的规则获胜，因此更具体、更晚插入的规则优先。
func compareRules(a, b Rule) int {
	if c := cmp.Compare(b.Capacity, a.Capacity); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// Verdict 是一次判定的结果。
//
// Matched 为 false 表示没有任何规则命中、由引擎的默认策略决定，
// 此时 Rule 为零值。构造后尚未判定时 Address 无效。
type Verdict struct {
	Address   netip.Addr
	Allowed   bool
	Forbidden bool
	Rule      Rule
	Matched   bool
}

func defaultVerdict(p Policy) Verdict {
	return Verdict{Allowed: p.Allowed(), Forbidden: !p.Allowed()}
}

func matchedVerdict(addr netip.Addr, r Rule) Verdict {
	return Verdict{
		Address:   addr,
		Allowed:   r.Policy.Allowed(),
		Forbidden: !r.Policy.Allowed(),
		Rule:      r,
		Matched:   true,
	}
}

// Policy 返回判定对应的策略。
func (v Verdict) Policy() Policy {
	return PolicyFromBool(v.Allowed)
}

// String 返回可读形式，如 "192.168.0.42 allow by 192.168.0.42"。
func (v Verdict) String() string {
	addr := "-"
	if v.Address.IsValid() {
		addr = v.Address.String()
	}
	if !v.Matched {
		return fmt.Sprintf("%s %s by default", addr, v.Policy())
	}
	return fmt.Sprintf("%s %s by %s", addr, v.Policy(), v.Rule.Range)
}
