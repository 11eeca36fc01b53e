package idgen

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/xerrors"
)

// redisStore 以 Redis 单个 key 保存段计数器，通过 WATCH/MULTI 实现比较更新
type redisStore struct {
	client  *redis.Client
	key     string
	cfg     *TableConfig
	logger  clog.Logger
	metrics *instruments

	accessCount atomic.Int64
}

func redisKey(cfg *TableConfig) string {
	return cfg.TableName + ":" + cfg.SegmentValue
}

func (s *redisStore) NextValue(ctx context.Context, step int64) (int64, error) {
	for {
		var current int64
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, s.key).Result()
			switch {
			case errors.Is(err, redis.Nil):
				current = s.cfg.InitialValue
			case err != nil:
				return xerrors.Wrapf(err, "get %s", s.key)
			default:
				if current, err = strconv.ParseInt(raw, 10, 64); err != nil {
					return xerrors.Wrapf(err, "decode %s value %q", s.key, raw)
				}
			}

			next, err := advance(s.cfg.SegmentValue, current, step)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.key, next, 0)
				return nil
			})
			return err
		}, s.key)

		if errors.Is(err, redis.TxFailedErr) {
			s.metrics.observeRetry(ctx, s.cfg.SegmentValue)
			s.logger.DebugContext(ctx, "segment value changed concurrently, retrying",
				clog.String("key", s.key),
				clog.Int64("expected", current),
			)
			continue
		}
		if errors.Is(err, ErrIdentifierOverflow) {
			return 0, err
		}
		if err != nil {
			return 0, storeError(s.cfg.SegmentValue, err)
		}

		s.accessCount.Add(1)
		return current, nil
	}
}

func (s *redisStore) AccessCount() int64 {
	return s.accessCount.Load()
}
