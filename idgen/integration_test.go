package idgen

import (
	"context"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/testkit"
	"github.com/ceyewan/tablegen/xerrors"
)

// 需要容器运行时，-short 模式下跳过

func TestIntegration_MySQL(t *testing.T) {
	runRelationalSuite(t, testkit.NewMySQLConnector(t))
}

func TestIntegration_PostgreSQL(t *testing.T) {
	runRelationalSuite(t, testkit.NewPostgreSQLConnector(t))
}

func runRelationalSuite(t *testing.T, conn connector.DatabaseConnector) {
	database := newDatabase(t, conn)

	t.Run("none", func(t *testing.T) {
		gen := newTableGenerator(t, database, Params{ParamTableName: "seq_" + testkit.NewID()})
		assert.Equal(t, sequence(1, 20), generateAll(t, gen, 20))
		assert.Equal(t, int64(21), storedValue(t, gen))
	})

	t.Run("pooled", func(t *testing.T) {
		gen := newTableGenerator(t, database, Params{
			ParamTableName:     "seq_" + testkit.NewID(),
			ParamIncrementSize: 10,
		})
		assert.Equal(t, []int64{1, 2}, generateAll(t, gen, 2))
		assert.Equal(t, int64(11), storedValue(t, gen))
	})

	t.Run("refill commits independently of caller transaction", func(t *testing.T) {
		gen := newTableGenerator(t, database, Params{ParamTableName: "seq_" + testkit.NewID()})
		ctx := testkit.NewContext(t, 30*time.Second)

		rollback := xerrors.New("rollback")
		err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
			v, err := gen.Generate(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)
			return rollback
		})
		assert.ErrorIs(t, err, rollback)
		assert.Equal(t, int64(2), storedValue(t, gen))
	})

	t.Run("concurrent instances", func(t *testing.T) {
		params := Params{ParamTableName: "seq_" + testkit.NewID(), ParamIncrementSize: 5}
		gens := []*TableGenerator{
			newTableGenerator(t, database, params),
			newTableGenerator(t, database, params),
			newTableGenerator(t, database, params),
		}
		assertUniqueUnderLoad(t, gens, 4, 50)
	})
}

func TestIntegration_Etcd(t *testing.T) {
	conn := testkit.NewEtcdConnector(t)
	table := "seq_" + testkit.NewID()

	newGen := func() *SegmentGenerator {
		gen, err := NewEtcdGenerator(conn, Int64, Params{ParamTableName: table, ParamIncrementSize: 10},
			WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		return gen
	}

	gen := newGen()
	assert.Equal(t, "/"+table+"/default", gen.GeneratorKey())
	assert.Equal(t, []int64{1, 2}, generateAll(t, gen, 2))

	resp, err := conn.GetClient().Get(context.Background(), gen.GeneratorKey())
	require.NoError(t, err)
	require.Len(t, resp.Kvs, 1)
	assert.Equal(t, "11", string(resp.Kvs[0].Value))

	assertSegmentUnique(t, []*SegmentGenerator{gen, newGen(), newGen()}, 4, 50)
}

func TestIntegration_Redis(t *testing.T) {
	conn := testkit.NewRedisConnector(t)
	table := "seq_" + testkit.NewID()

	newGen := func() *SegmentGenerator {
		gen, err := NewRedisGenerator(conn, Int64, Params{ParamTableName: table, ParamOptimizer: "none"},
			WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		return gen
	}

	gen := newGen()
	assert.Equal(t, table+":default", gen.GeneratorKey())
	assert.Equal(t, []int64{1, 2, 3}, generateAll(t, gen, 3))

	raw, err := conn.GetClient().Get(context.Background(), gen.GeneratorKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, "4", raw)

	assertSegmentUnique(t, []*SegmentGenerator{gen, newGen()}, 4, 50)

	raw, err = conn.GetClient().Get(context.Background(), gen.GeneratorKey()).Result()
	require.NoError(t, err)
	stored, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, int64(4+2*4*50), stored)

	// 接近上界的计数器不会被写回负数
	full := strconv.FormatInt(math.MaxInt64, 10)
	require.NoError(t, conn.GetClient().Set(context.Background(), gen.GeneratorKey(), full, 0).Err())
	_, err = newGen().Generate(context.Background())
	assert.ErrorIs(t, err, ErrIdentifierOverflow)
	raw, err = conn.GetClient().Get(context.Background(), gen.GeneratorKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, full, raw)
}

func TestNewSegmentGenerator_NilConnector(t *testing.T) {
	_, err := NewEtcdGenerator(nil, Int64, nil)
	assert.ErrorIs(t, err, ErrConnectorNil)
	_, err = NewRedisGenerator(nil, Int64, nil)
	assert.ErrorIs(t, err, ErrConnectorNil)
}

func assertSegmentUnique(t *testing.T, gens []*SegmentGenerator, workersPerGen, perWorker int) {
	t.Helper()
	ctx := testkit.NewContext(t, 60*time.Second)

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, gen := range gens {
		for range workersPerGen {
			g.Go(func() error {
				for range perWorker {
					v, err := gen.Generate(ctx)
					if err != nil {
						return err
					}
					mu.Lock()
					seen[v] = struct{}{}
					mu.Unlock()
				}
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, len(gens)*workersPerGen*perWorker)
}
