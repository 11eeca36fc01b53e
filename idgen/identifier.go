package idgen

import (
	"context"
	"math"
	"strings"

	"github.com/ceyewan/tablegen/xerrors"
)

// IdentifierType 生成值的目标整数类型，决定可用的取值范围
type IdentifierType int

const (
	Int64 IdentifierType = iota
	Int32
	Int16
)

// ParseIdentifierType 解析类型名称，空串表示 Int64
func ParseIdentifierType(s string) (IdentifierType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "int64", "long", "bigint":
		return Int64, nil
	case "int32", "int", "integer":
		return Int32, nil
	case "int16", "short", "smallint":
		return Int16, nil
	default:
		return 0, configError(CodeInvalidParam, "unknown identifier type %q", s)
	}
}

func (t IdentifierType) String() string {
	switch t {
	case Int32:
		return "int32"
	case Int16:
		return "int16"
	default:
		return "int64"
	}
}

// Max 类型允许的最大值
func (t IdentifierType) Max() int64 {
	switch t {
	case Int32:
		return math.MaxInt32
	case Int16:
		return math.MaxInt16
	default:
		return math.MaxInt64
	}
}

// Min 类型允许的最小值
func (t IdentifierType) Min() int64 {
	switch t {
	case Int32:
		return math.MinInt32
	case Int16:
		return math.MinInt16
	default:
		return math.MinInt64
	}
}

// Check 值超出类型范围时返回 ErrIdentifierOverflow
func (t IdentifierType) Check(v int64) error {
	if v > t.Max() || v < t.Min() {
		return xerrors.Wrapf(ErrIdentifierOverflow, "value %d does not fit %s", v, t)
	}
	return nil
}

// Generator 生成单个标识符
type Generator interface {
	Generate(ctx context.Context) (int64, error)
}

// Integer 可作为标识符的整数类型
type Integer interface {
	~int | ~int16 | ~int32 | ~int64
}

// Next 生成一个标识符并转换为 T
//
//	id, err := idgen.Next[int32](ctx, gen)
func Next[T Integer](ctx context.Context, g Generator) (T, error) {
	v, err := g.Generate(ctx)
	if err != nil {
		return 0, err
	}
	out := T(v)
	if int64(out) != v {
		return 0, xerrors.Wrapf(ErrIdentifierOverflow, "value %d does not fit target type", v)
	}
	return out, nil
}
