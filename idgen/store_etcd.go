package idgen

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/xerrors"
)

// etcdStore 以 etcd 单个 key 保存段计数器，通过 Txn 比较值实现比较更新
type etcdStore struct {
	client  *clientv3.Client
	key     string
	cfg     *TableConfig
	logger  clog.Logger
	metrics *instruments

	accessCount atomic.Int64
}

func etcdKey(cfg *TableConfig) string {
	return "/" + cfg.TableName + "/" + cfg.SegmentValue
}

func (s *etcdStore) NextValue(ctx context.Context, step int64) (int64, error) {
	for {
		current, ok, err := s.tryAdvance(ctx, step)
		if errors.Is(err, ErrIdentifierOverflow) {
			return 0, err
		}
		if err != nil {
			return 0, storeError(s.cfg.SegmentValue, err)
		}
		if ok {
			s.accessCount.Add(1)
			return current, nil
		}
		s.metrics.observeRetry(ctx, s.cfg.SegmentValue)
		s.logger.DebugContext(ctx, "segment value changed concurrently, retrying",
			clog.String("key", s.key),
			clog.Int64("expected", current),
		)
	}
}

// tryAdvance 执行一次读取加比较更新，比较失败时 ok 为 false
func (s *etcdStore) tryAdvance(ctx context.Context, step int64) (current int64, ok bool, err error) {
	resp, err := s.client.Get(ctx, s.key)
	if err != nil {
		return 0, false, xerrors.Wrapf(err, "get %s", s.key)
	}

	var cmp clientv3.Cmp
	if len(resp.Kvs) == 0 {
		current = s.cfg.InitialValue
		cmp = clientv3util.KeyMissing(s.key)
	} else {
		raw := string(resp.Kvs[0].Value)
		if current, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, false, xerrors.Wrapf(err, "decode %s value %q", s.key, raw)
		}
		cmp = clientv3.Compare(clientv3.Value(s.key), "=", raw)
	}

	next, err := advance(s.cfg.SegmentValue, current, step)
	if err != nil {
		return 0, false, err
	}
	txn, err := s.client.Txn(ctx).
		If(cmp).
		Then(clientv3.OpPut(s.key, strconv.FormatInt(next, 10))).
		Commit()
	if err != nil {
		return 0, false, xerrors.Wrapf(err, "txn put %s", s.key)
	}
	if txn.Succeeded && len(resp.Kvs) == 0 {
		s.logger.InfoContext(ctx, "segment initialized",
			clog.String("key", s.key),
			clog.Int64("initial_value", current),
		)
	}
	return current, txn.Succeeded, nil
}

func (s *etcdStore) AccessCount() int64 {
	return s.accessCount.Load()
}
