package xfirewall

import "context"

// ValidateContext 通过解析器取得调用方地址并判定。
//
// 解析器没有给出地址时不做任何事：返回当前判定与 ok=false，错误为 nil。
func (e *Engine) ValidateContext(ctx context.Context) (v Verdict, ok bool, err error) {
	addr, found := e.resolver.Resolve(ctx)
	if !found {
		return e.last, false, nil
	}
	v, err = e.ValidateAddr(addr)
	if err != nil {
		return e.last, false, err
	}
	return v, true, nil
}

// Handle 判定当前调用方并返回是否放行。
//
// 没有地址时返回 false。配置了 [WithHandler] 时返回回调的结果。
func (e *Engine) Handle(ctx context.Context) (bool, error) {
	v, ok, err := e.ValidateContext(ctx)
	if err != nil || !ok {
		return false, err
	}
	if e.handler != nil {
		return e.handler(ctx, v), nil
	}
	return v.Allowed, nil
}

// Check 返回当前判定是否放行。
func (e *Engine) Check() bool {
	return e.last.Allowed
}
