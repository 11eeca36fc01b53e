package idgen

import "strings"

// Strategy 优化器策略
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyHiLo     Strategy = "hilo"
	StrategyPooled   Strategy = "pooled"
	StrategyPooledLo Strategy = "pooled-lo"
)

// ParseStrategy 解析策略名称，大小写不敏感
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return StrategyNone, nil
	case "hilo", "hi-lo", "hi_lo":
		return StrategyHiLo, nil
	case "pooled", "pool":
		return StrategyPooled, nil
	case "pooled-lo", "pooled_lo", "pool-lo", "pool_lo":
		return StrategyPooledLo, nil
	default:
		return "", configError(CodeUnknownOptimizer, "unknown optimizer %q", name)
	}
}

// ResolveStrategy 决定生成器使用的策略
//
// 显式配置的 optimizer 总是生效，即使 increment_size <= 1；
// 否则 increment_size <= 1 时使用 none，
// 其余情况使用 pooled，prefer_pooled_lo_optimizer 为 true 时使用 pooled-lo。
func ResolveStrategy(params Params, incrementSize int64) (Strategy, error) {
	name, err := params.String(ParamOptimizer, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) != "" {
		return ParseStrategy(name)
	}
	if incrementSize <= 1 {
		return StrategyNone, nil
	}
	preferLo, err := params.Bool(ParamPreferPooledLo, false)
	if err != nil {
		return "", err
	}
	if preferLo {
		return StrategyPooledLo, nil
	}
	return StrategyPooled, nil
}
