package xnet

import "fmt"

// WireRange 是 IP 范围的序列化格式，用于诊断输出与规则导出。
//
// Notation 是唯一的权威字段，其余字段为派生信息：反序列化时
// 只解析 Notation，Kind 非空时必须与解析结果一致。
type WireRange struct {
	Notation string `json:"notation" yaml:"notation"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Capacity uint64 `json:"capacity" yaml:"capacity"`
}

// Wire 返回 r 的序列化形式。无效范围返回零值。
func (r Range) Wire() WireRange {
	if !r.IsValid() {
		return WireRange{}
	}
	return WireRange{
		Notation: r.String(),
		Kind:     r.kind,
		Start:    r.From().String(),
		End:      r.To().String(),
		Capacity: r.Capacity(),
	}
}

// ToRange 将 WireRange 转换回 [Range]。
func (w WireRange) ToRange() (Range, error) {
	r, err := ParseRange(w.Notation)
	if err != nil {
		return Range{}, err
	}
	if w.Kind != KindInvalid && w.Kind != r.kind {
		return Range{}, fmt.Errorf("%w: %q is %s, not %s", ErrMalformedRange, w.Notation, r.kind, w.Kind)
	}
	return r, nil
}

// IsZero 报告 w 是否为零值。
func (w WireRange) IsZero() bool {
	return w == WireRange{}
}

// String 返回表示法。
func (w WireRange) String() string {
	return w.Notation
}
