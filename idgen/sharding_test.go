package idgen_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tablegen/db"
	"github.com/ceyewan/tablegen/idgen"
	"github.com/ceyewan/tablegen/testkit"
)

// 分片表的主键来自表生成器
func TestTableGeneratorAsShardingKeyGenerator(t *testing.T) {
	ctx := testkit.NewContext(t, 10*time.Second)
	logger := testkit.NewLogger()

	seqDB, err := db.New(testkit.NewSQLiteConnector(t), &db.Config{}, db.WithLogger(logger))
	require.NoError(t, err)
	gen, err := idgen.NewTableGenerator(seqDB, idgen.Int64, idgen.Params{
		idgen.ParamPreferSegmentTable: true,
		idgen.ParamTargetTable:        "orders",
		idgen.ParamInitialValue:       1000,
		idgen.ParamIncrementSize:      10,
	}, idgen.WithLogger(logger))
	require.NoError(t, err)
	_, err = gen.EnsureSchema(context.Background())
	require.NoError(t, err)

	conn := testkit.NewSQLiteConnector(t)
	orders, err := db.New(conn, &db.Config{
		EnableSharding: true,
		Sharding: db.ShardingRule{
			ShardingKey:    "user_id",
			NumberOfShards: 2,
			Tables:         []string{"orders"},
		},
	}, db.WithLogger(logger), db.WithKeyGenerator(gen))
	require.NoError(t, err)

	raw := conn.GetClient()
	for _, table := range []string{"orders_0", "orders_1"} {
		require.NoError(t, raw.Exec("create table "+table+" (id bigint primary key, user_id bigint, amount bigint)").Error)
	}

	for userID := int64(1); userID <= 4; userID++ {
		require.NoError(t, orders.DB(ctx).
			Exec("INSERT INTO orders (user_id, amount) VALUES (?, ?)", userID, userID*10).Error)
	}

	var odd, even []int64
	require.NoError(t, raw.Raw("select id from orders_1 order by id").Scan(&odd).Error)
	require.NoError(t, raw.Raw("select id from orders_0 order by id").Scan(&even).Error)
	assert.Equal(t, []int64{1000, 1002}, odd)
	assert.Equal(t, []int64{1001, 1003}, even)
	assert.Equal(t, int64(1), gen.AccessCount())
}
