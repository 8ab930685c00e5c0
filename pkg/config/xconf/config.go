package xconf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/omeyang/xguard/pkg/security/xfirewall"
	"github.com/omeyang/xguard/pkg/util/xnet"
)

// Format 定义规则文件格式。
type Format string

// 支持的格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// File 是规则文件的内容。
type File struct {
	Default string      `koanf:"default" json:"default,omitempty" yaml:"default,omitempty"`
	Sort    string      `koanf:"sort" json:"sort,omitempty" yaml:"sort,omitempty"`
	Allow   []string    `koanf:"allow" json:"allow,omitempty" yaml:"allow,omitempty"`
	Forbid  []string    `koanf:"forbid" json:"forbid,omitempty" yaml:"forbid,omitempty"`
	Rules   []RuleEntry `koanf:"rules" json:"rules,omitempty" yaml:"rules,omitempty"`
}

// RuleEntry 是 rules 段中的一条有序规则。
type RuleEntry struct {
	Range  string `koanf:"range" json:"range" yaml:"range"`
	Policy string `koanf:"policy" json:"policy" yaml:"policy"`
}

// DefaultPolicy 返回默认策略，空值为 Forbid。
func (f *File) DefaultPolicy() (xfirewall.Policy, error) {
	if strings.TrimSpace(f.Default) == "" {
		return xfirewall.Forbid, nil
	}
	p, err := xfirewall.ParsePolicy(f.Default)
	if err != nil {
		return xfirewall.PolicyUndefined, fmt.Errorf("%w: default: %w", ErrInvalidPolicy, err)
	}
	return p, nil
}

// SortMode 返回排序模式，空值为 DeferredSort。
func (f *File) SortMode() (xfirewall.SortMode, error) {
	m, err := xfirewall.ParseSortMode(f.Sort)
	if err != nil {
		return xfirewall.DeferredSort, fmt.Errorf("%w: %w", ErrInvalidSortMode, err)
	}
	return m, nil
}

// Validate 校验策略名、排序模式与全部范围。
func (f *File) Validate() error {
	if _, err := f.DefaultPolicy(); err != nil {
		return err
	}
	if _, err := f.SortMode(); err != nil {
		return err
	}
	if _, err := xnet.ParseRanges(f.Allow); err != nil {
		return fmt.Errorf("%w: allow: %w", ErrInvalidRange, err)
	}
	if _, err := xnet.ParseRanges(f.Forbid); err != nil {
		return fmt.Errorf("%w: forbid: %w", ErrInvalidRange, err)
	}
	for i, r := range f.Rules {
		if _, err := xfirewall.ParsePolicy(r.Policy); err != nil {
			return fmt.Errorf("%w: rules [%d]: %w", ErrInvalidPolicy, i, err)
		}
		if _, err := xnet.ParseRange(r.Range); err != nil {
			return fmt.Errorf("%w: rules [%d]: %w", ErrInvalidRange, i, err)
		}
	}
	return nil
}

// Build 按文件内容创建引擎。文件中显式写出的默认策略与排序模式优先于 opts；
// 文件省略时以 opts 为准，opts 也未设置时为 Forbid 与 DeferredSort。
func (f *File) Build(opts ...xfirewall.Option) (*xfirewall.Engine, error) {
	def, err := f.DefaultPolicy()
	if err != nil {
		return nil, err
	}
	mode, err := f.SortMode()
	if err != nil {
		return nil, err
	}
	all := opts[:len(opts):len(opts)]
	if strings.TrimSpace(f.Default) != "" {
		all = append(all, xfirewall.WithDefault(def))
	}
	if strings.TrimSpace(f.Sort) != "" {
		all = append(all, xfirewall.WithSortMode(mode))
	}
	e := xfirewall.New(all...)
	if err := f.Apply(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Apply 按 allow、forbid、rules 的顺序把规则加入 e，不修改 e 的默认策略。
// 未经 Validate 的 File 可能在中途失败，此前的规则已经生效。
func (f *File) Apply(e *xfirewall.Engine) error {
	if err := e.AddRanges(f.Allow, xfirewall.Allow); err != nil {
		return fmt.Errorf("%w: allow: %w", ErrInvalidRange, err)
	}
	if err := e.AddRanges(f.Forbid, xfirewall.Forbid); err != nil {
		return fmt.Errorf("%w: forbid: %w", ErrInvalidRange, err)
	}
	for i, r := range f.Rules {
		p, err := xfirewall.ParsePolicy(r.Policy)
		if err != nil {
			return fmt.Errorf("%w: rules [%d]: %w", ErrInvalidPolicy, i, err)
		}
		if err := e.AddRange(r.Range, p); err != nil {
			return fmt.Errorf("%w: rules [%d]: %w", ErrInvalidRange, i, err)
		}
	}
	return nil
}

// Len 返回文件中的规则条数（不含默认策略）。
func (f *File) Len() int {
	return len(f.Allow) + len(f.Forbid) + len(f.Rules)
}

// Fingerprint 返回规范化内容的 xxhash。
func (f *File) Fingerprint() uint64 {
	d := xxhash.New()
	def, _ := f.DefaultPolicy()
	mode, _ := f.SortMode()
	_, _ = d.WriteString("default=" + def.String() + "\n")
	_, _ = d.WriteString("sort=" + mode.String() + "\n")
	for _, s := range f.Allow {
		_, _ = d.WriteString("allow " + canonical(s) + "\n")
	}
	for _, s := range f.Forbid {
		_, _ = d.WriteString("forbid " + canonical(s) + "\n")
	}
	for _, r := range f.Rules {
		p, err := xfirewall.ParsePolicy(r.Policy)
		name := strings.TrimSpace(r.Policy)
		if err == nil {
			name = p.String()
		}
		_, _ = d.WriteString("rule " + name + " " + canonical(r.Range) + "\n")
	}
	_, _ = d.WriteString("count=" + strconv.Itoa(f.Len()))
	return d.Sum64()
}

func canonical(spec string) string {
	r, err := xnet.ParseRange(spec)
	if err != nil {
		return strings.TrimSpace(spec)
	}
	return r.String()
}
