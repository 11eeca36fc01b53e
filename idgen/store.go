package idgen

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/db"
	"github.com/ceyewan/tablegen/xerrors"
)

// SegmentStore 共享的段计数器
type SegmentStore interface {
	// NextValue 在独立的工作单元中预留 [current, current+step)，返回 current
	//
	// 段不存在时以初始值创建。并发写入导致比较失败时在内部重试，不设上限。
	NextValue(ctx context.Context, step int64) (int64, error)

	// AccessCount 成功刷新的次数
	AccessCount() int64
}

// advance 计算写回的计数器，越过 int64 上界时不写入，计数器保持不变
func advance(segment string, current, step int64) (int64, error) {
	if current > math.MaxInt64-step {
		return 0, xerrors.Wrapf(ErrIdentifierOverflow, "segment %s: value %d with step %d", segment, current, step)
	}
	return current + step, nil
}

// tableStore 基于关系表的段存储，每次刷新使用生成器自己的连接开启新事务，
// 与调用方的事务互不影响
type tableStore struct {
	db        db.DB
	cfg       *TableConfig
	stmts     statements
	txOptions *sql.TxOptions
	logger    clog.Logger
	sqlLogger clog.Logger
	metrics   *instruments

	accessCount atomic.Int64

	// beforeUpdate 测试钩子，在比较更新之前执行
	beforeUpdate func(ctx context.Context, tx *gorm.DB, current int64) error
}

func (s *tableStore) NextValue(ctx context.Context, step int64) (int64, error) {
	var result int64
	fn := func(ctx context.Context, tx *gorm.DB) error {
		for {
			current, err := s.readOrInit(ctx, tx)
			if err != nil {
				return err
			}

			if s.beforeUpdate != nil {
				if err := s.beforeUpdate(ctx, tx, current); err != nil {
					return err
				}
			}

			next, err := advance(s.cfg.SegmentValue, current, step)
			if err != nil {
				return err
			}
			s.logStatement(ctx, s.stmts.updateSQL, next, current, s.cfg.SegmentValue)
			res := tx.Exec(s.stmts.updateSQL, next, current, s.cfg.SegmentValue)
			if res.Error != nil {
				return xerrors.Wrap(res.Error, "update segment value")
			}
			if res.RowsAffected > 0 {
				result = current
				return nil
			}

			s.metrics.observeRetry(ctx, s.cfg.SegmentValue)
			s.logger.DebugContext(ctx, "segment value changed concurrently, retrying",
				clog.String("segment", s.cfg.SegmentValue),
				clog.Int64("expected", current),
			)
		}
	}

	var txOpts []*sql.TxOptions
	if s.txOptions != nil {
		txOpts = append(txOpts, s.txOptions)
	}
	if err := s.db.Transaction(ctx, fn, txOpts...); err != nil {
		if errors.Is(err, ErrIdentifierOverflow) {
			return 0, err
		}
		return 0, storeError(s.cfg.SegmentValue, err)
	}

	s.accessCount.Add(1)
	return result, nil
}

// readOrInit 加锁读取当前值，段不存在时插入初始值
func (s *tableStore) readOrInit(ctx context.Context, tx *gorm.DB) (int64, error) {
	current, found, err := s.read(ctx, tx)
	if err != nil || found {
		return current, err
	}

	s.logStatement(ctx, s.stmts.insertSQL, s.cfg.SegmentValue, s.cfg.InitialValue)
	if err := tx.Exec(s.stmts.insertSQL, s.cfg.SegmentValue, s.cfg.InitialValue).Error; err != nil {
		return 0, xerrors.Wrap(err, "insert initial segment value")
	}
	s.logger.InfoContext(ctx, "segment initialized",
		clog.String("table", s.cfg.TableName),
		clog.String("segment", s.cfg.SegmentValue),
		clog.Int64("initial_value", s.cfg.InitialValue),
	)
	return s.cfg.InitialValue, nil
}

func (s *tableStore) read(ctx context.Context, tx *gorm.DB) (int64, bool, error) {
	s.logStatement(ctx, s.stmts.selectSQL, s.cfg.SegmentValue)
	rows, err := tx.Raw(s.stmts.selectSQL, s.cfg.SegmentValue).Rows()
	if err != nil {
		return 0, false, xerrors.Wrap(err, "select segment value")
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, xerrors.Wrap(rows.Err(), "select segment value")
	}
	var v sql.NullInt64
	if err := rows.Scan(&v); err != nil {
		return 0, false, xerrors.Wrap(err, "scan segment value")
	}
	if !v.Valid {
		return 0, false, xerrors.Wrapf(xerrors.ErrConflict, "segment %s has a null value", s.cfg.SegmentValue)
	}
	return v.Int64, true, nil
}

func (s *tableStore) logStatement(ctx context.Context, stmt string, args ...any) {
	s.sqlLogger.DebugContext(ctx, stmt, clog.Any("args", args))
}

func (s *tableStore) AccessCount() int64 {
	return s.accessCount.Load()
}
