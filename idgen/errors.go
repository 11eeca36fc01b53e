package idgen

import (
	"fmt"

	"github.com/ceyewan/tablegen/xerrors"
)

var (
	// ErrInvalidConfig 生成器参数不合法，构造时返回
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrInvalidInput, "idgen: invalid config")

	// ErrStoreFailure 读写段存储失败，事务已回滚
	ErrStoreFailure = xerrors.New("idgen: segment store failure")

	// ErrOptimizerMisuse 回调返回的源值与已分配的区间重叠
	ErrOptimizerMisuse = xerrors.New("idgen: optimizer misuse")

	// ErrIdentifierOverflow 生成的值超出标识符类型的范围
	ErrIdentifierOverflow = xerrors.New("idgen: identifier overflow")

	// ErrUnknownEntity Registry 中没有该实体
	ErrUnknownEntity = xerrors.Wrap(xerrors.ErrNotFound, "idgen: unknown entity")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.Wrap(xerrors.ErrInvalidInput, "idgen: connector is nil")
)

// 错误码
const (
	CodeInvalidParam     = "invalid_param"
	CodeUnknownOptimizer = "unknown_optimizer"
	CodeSegmentTooLong   = "segment_too_long"
	CodeStoreFailure     = "store_failure"
)

func configError(code, format string, args ...any) error {
	return xerrors.WithCode(xerrors.Wrapf(ErrInvalidConfig, format, args...), code)
}

// storeError 同时保留 ErrStoreFailure 与底层驱动错误
func storeError(segment string, err error) error {
	return xerrors.WithCode(fmt.Errorf("%w: segment %s: %w", ErrStoreFailure, segment, err), CodeStoreFailure)
}
