package config

import "github.com/ceyewan/tablegen/xerrors"

// ErrValidationFailed 配置为空或不满足约束
var ErrValidationFailed = xerrors.Wrap(xerrors.ErrInvalidInput, "configuration validation failed")

// IsNotFound 检查错误是否为配置未找到
func IsNotFound(err error) bool {
	return xerrors.Is(err, xerrors.ErrNotFound)
}

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput)
}
