package idgen

import (
	"strings"
	"unicode/utf8"

	"github.com/ceyewan/tablegen/dialect"
)

// TableConfig 生成器解析后的配置，构造后不可变
type TableConfig struct {
	TableName          string
	SegmentColumn      string
	ValueColumn        string
	SegmentValue       string
	SegmentValueLength int
	InitialValue       int64
	IncrementSize      int64
	Strategy           Strategy
	IdentifierType     IdentifierType
}

// ResolveTableConfig 按默认值与优先级规则解析参数
func ResolveTableConfig(idType IdentifierType, params Params) (*TableConfig, error) {
	cfg := &TableConfig{IdentifierType: idType}

	var err error
	if cfg.TableName, err = resolveTableName(params); err != nil {
		return nil, err
	}
	if cfg.SegmentColumn, err = params.String(ParamSegmentColumn, DefaultSegmentColumn); err != nil {
		return nil, err
	}
	if cfg.ValueColumn, err = params.String(ParamValueColumn, DefaultValueColumn); err != nil {
		return nil, err
	}
	if cfg.SegmentValue, err = resolveSegmentValue(params); err != nil {
		return nil, err
	}
	if cfg.SegmentValueLength, err = params.Int(ParamSegmentLength, DefaultSegmentLength); err != nil {
		return nil, err
	}
	if cfg.InitialValue, err = params.Int64(ParamInitialValue, DefaultInitialValue); err != nil {
		return nil, err
	}
	if cfg.IncrementSize, err = params.Int64(ParamIncrementSize, DefaultIncrementSize); err != nil {
		return nil, err
	}
	if cfg.Strategy, err = ResolveStrategy(params, cfg.IncrementSize); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveTableName 未限定的表名按 catalog.schema.table 限定，已含 "." 的原样使用
func resolveTableName(params Params) (string, error) {
	name, err := params.String(ParamTableName, DefaultTableName)
	if err != nil {
		return "", err
	}
	if strings.Contains(name, ".") {
		return name, nil
	}
	schema, err := params.String(ParamSchema, "")
	if err != nil {
		return "", err
	}
	catalog, err := params.String(ParamCatalog, "")
	if err != nil {
		return "", err
	}
	return dialect.Qualify(catalog, schema, name), nil
}

func resolveSegmentValue(params Params) (string, error) {
	value, err := params.String(ParamSegmentValue, "")
	if err != nil {
		return "", err
	}
	if value != "" {
		return value, nil
	}

	perEntity, err := params.Bool(ParamPreferSegmentTable, false)
	if err != nil {
		return "", err
	}
	if !perEntity {
		return DefaultSegmentValue, nil
	}
	target, err := params.String(ParamTargetTable, "")
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", configError(CodeInvalidParam, "%s requires %s", ParamPreferSegmentTable, ParamTargetTable)
	}
	return target, nil
}

func (c *TableConfig) validate() error {
	if c.TableName == "" {
		return configError(CodeInvalidParam, "%s must not be empty", ParamTableName)
	}
	if c.SegmentColumn == "" {
		return configError(CodeInvalidParam, "%s must not be empty", ParamSegmentColumn)
	}
	if c.ValueColumn == "" {
		return configError(CodeInvalidParam, "%s must not be empty", ParamValueColumn)
	}
	if c.SegmentColumn == c.ValueColumn {
		return configError(CodeInvalidParam, "segment and value columns must differ, both are %q", c.ValueColumn)
	}
	if c.SegmentValueLength <= 0 {
		return configError(CodeInvalidParam, "%s must be positive, got %d", ParamSegmentLength, c.SegmentValueLength)
	}
	// varchar(n) 按字符计长度
	if utf8.RuneCountInString(c.SegmentValue) > c.SegmentValueLength {
		return configError(CodeSegmentTooLong, "segment value %q exceeds %s %d", c.SegmentValue, ParamSegmentLength, c.SegmentValueLength)
	}
	if c.Strategy != StrategyNone && c.IncrementSize < 1 {
		return configError(CodeInvalidParam, "optimizer %s requires %s >= 1, got %d", c.Strategy, ParamIncrementSize, c.IncrementSize)
	}
	if err := c.IdentifierType.Check(c.InitialValue); err != nil {
		return configError(CodeInvalidParam, "%s: %v", ParamInitialValue, err)
	}
	return nil
}
