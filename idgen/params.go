package idgen

import (
	"maps"

	"github.com/spf13/cast"
)

// 参数名
const (
	ParamTableName          = "table_name"
	ParamValueColumn        = "value_column_name"
	ParamSegmentColumn      = "segment_column_name"
	ParamSegmentValue       = "segment_value"
	ParamSegmentLength      = "segment_value_length"
	ParamInitialValue       = "initial_value"
	ParamIncrementSize      = "increment_size"
	ParamOptimizer          = "optimizer"
	ParamSchema             = "schema"
	ParamCatalog            = "catalog"
	ParamTargetTable        = "target_table"
	ParamPreferSegmentTable = "prefer_entity_table_as_segment_value"
	ParamPreferPooledLo     = "prefer_pooled_lo_optimizer"
	ParamIdentifierType     = "identifier_type"
)

// 默认值
const (
	DefaultTableName     = "hibernate_sequences"
	DefaultValueColumn   = "next_val"
	DefaultSegmentColumn = "sequence_name"
	DefaultSegmentValue  = "default"
	DefaultSegmentLength = 255
	DefaultInitialValue  = 1
	DefaultIncrementSize = 1
)

// Params 生成器参数，值可以是字符串或对应的原生类型
//
// 通常来自 YAML 配置，数字可能被解码为 int、float64 或 string，
// 读取时统一经由 cast 转换。
type Params map[string]any

// Clone 返回浅拷贝
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// Has 判断参数是否存在且非 nil
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String 读取字符串参数，不存在时返回 def
func (p Params) String(key, def string) (string, error) {
	if !p.Has(key) {
		return def, nil
	}
	s, err := cast.ToStringE(p[key])
	if err != nil {
		return "", configError(CodeInvalidParam, "parameter %s: %v", key, err)
	}
	return s, nil
}

// Int 读取 int 参数
func (p Params) Int(key string, def int) (int, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := cast.ToIntE(p[key])
	if err != nil {
		return 0, configError(CodeInvalidParam, "parameter %s: %v", key, err)
	}
	return v, nil
}

// Int64 读取 int64 参数
func (p Params) Int64(key string, def int64) (int64, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := cast.ToInt64E(p[key])
	if err != nil {
		return 0, configError(CodeInvalidParam, "parameter %s: %v", key, err)
	}
	return v, nil
}

// Bool 读取布尔参数，接受 true/false/1/0 等写法
func (p Params) Bool(key string, def bool) (bool, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := cast.ToBoolE(p[key])
	if err != nil {
		return false, configError(CodeInvalidParam, "parameter %s: %v", key, err)
	}
	return v, nil
}
