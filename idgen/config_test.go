package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tablegen/dialect"
	"github.com/ceyewan/tablegen/xerrors"
)

func TestParams(t *testing.T) {
	p := Params{
		"s":     "abc",
		"n":     "42",
		"f":     float64(7),
		"b":     "true",
		"nil":   nil,
		"bad_n": "forty",
	}

	s, err := p.String("s", "def")
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	s, err = p.String("missing", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", s)

	s, err = p.String("nil", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", s)

	n, err := p.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n64, err := p.Int64("f", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n64)

	b, err := p.Bool("b", false)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = p.Int64("bad_n", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, CodeInvalidParam, xerrors.GetCode(err))

	clone := p.Clone()
	clone["s"] = "changed"
	assert.Equal(t, "abc", p["s"])
	assert.NotNil(t, Params(nil).Clone())
}

func TestResolveTableConfig_Defaults(t *testing.T) {
	cfg, err := ResolveTableConfig(Int64, nil)
	require.NoError(t, err)
	assert.Equal(t, &TableConfig{
		TableName:          DefaultTableName,
		SegmentColumn:      DefaultSegmentColumn,
		ValueColumn:        DefaultValueColumn,
		SegmentValue:       DefaultSegmentValue,
		SegmentValueLength: DefaultSegmentLength,
		InitialValue:       DefaultInitialValue,
		IncrementSize:      DefaultIncrementSize,
		Strategy:           StrategyNone,
		IdentifierType:     Int64,
	}, cfg)
}

func TestResolveTableConfig(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		check  func(t *testing.T, cfg *TableConfig)
	}{
		{
			name:   "custom names",
			params: Params{ParamTableName: "id_segments", ParamSegmentColumn: "seg", ParamValueColumn: "val"},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, "id_segments", cfg.TableName)
				assert.Equal(t, "seg", cfg.SegmentColumn)
				assert.Equal(t, "val", cfg.ValueColumn)
			},
		},
		{
			name:   "qualified with schema and catalog",
			params: Params{ParamSchema: "app", ParamCatalog: "main"},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, "main.app.hibernate_sequences", cfg.TableName)
			},
		},
		{
			name:   "already qualified name passes through",
			params: Params{ParamTableName: "other.seq", ParamSchema: "app"},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, "other.seq", cfg.TableName)
			},
		},
		{
			name:   "segment per entity",
			params: Params{ParamPreferSegmentTable: true, ParamTargetTable: "orders"},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, "orders", cfg.SegmentValue)
			},
		},
		{
			name:   "explicit segment wins over per entity",
			params: Params{ParamSegmentValue: "shared", ParamPreferSegmentTable: true, ParamTargetTable: "orders"},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, "shared", cfg.SegmentValue)
			},
		},
		{
			name:   "empty segment falls back to default",
			params: Params{ParamSegmentValue: ""},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, DefaultSegmentValue, cfg.SegmentValue)
			},
		},
		{
			name:   "increment selects pooled",
			params: Params{ParamIncrementSize: "20", ParamInitialValue: 100},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, int64(20), cfg.IncrementSize)
				assert.Equal(t, int64(100), cfg.InitialValue)
				assert.Equal(t, StrategyPooled, cfg.Strategy)
			},
		},
		{
			name:   "explicit pooled with increment 1",
			params: Params{ParamOptimizer: "pooled"},
			check: func(t *testing.T, cfg *TableConfig) {
				assert.Equal(t, StrategyPooled, cfg.Strategy)
				assert.Equal(t, int64(1), cfg.IncrementSize)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ResolveTableConfig(Int64, tt.params)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestResolveTableConfig_SegmentLengthCountsCharacters(t *testing.T) {
	cfg, err := ResolveTableConfig(Int64, Params{ParamSegmentValue: "订单", ParamSegmentLength: 2})
	require.NoError(t, err)
	assert.Equal(t, "订单", cfg.SegmentValue)
}

func TestResolveTableConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		idType IdentifierType
		params Params
		code   string
	}{
		{name: "empty table", params: Params{ParamTableName: ""}, code: CodeInvalidParam},
		{name: "empty segment column", params: Params{ParamSegmentColumn: ""}, code: CodeInvalidParam},
		{name: "same columns", params: Params{ParamSegmentColumn: "v", ParamValueColumn: "v"}, code: CodeInvalidParam},
		{name: "non-positive length", params: Params{ParamSegmentLength: 0}, code: CodeInvalidParam},
		{name: "segment too long", params: Params{ParamSegmentValue: "abcdef", ParamSegmentLength: 3}, code: CodeSegmentTooLong},
		{name: "multibyte segment too long", params: Params{ParamSegmentValue: "订单表", ParamSegmentLength: 2}, code: CodeSegmentTooLong},
		{name: "malformed increment", params: Params{ParamIncrementSize: "ten"}, code: CodeInvalidParam},
		{name: "unknown optimizer", params: Params{ParamOptimizer: "legacy"}, code: CodeUnknownOptimizer},
		{name: "pooled with zero increment", params: Params{ParamOptimizer: "pooled", ParamIncrementSize: 0}, code: CodeInvalidParam},
		{name: "per entity without target", params: Params{ParamPreferSegmentTable: true}, code: CodeInvalidParam},
		{name: "initial value overflows int16", idType: Int16, params: Params{ParamInitialValue: 40000}, code: CodeInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveTableConfig(tt.idType, tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
			assert.Equal(t, tt.code, xerrors.GetCode(err))
		})
	}
}

func TestBuildStatements(t *testing.T) {
	cfg, err := ResolveTableConfig(Int64, nil)
	require.NoError(t, err)

	tests := []struct {
		dialect dialect.Dialect
		sel     string
		drop    string
	}{
		{
			dialect: dialect.MySQL,
			sel:     "select tbl.next_val from hibernate_sequences tbl where tbl.sequence_name = ? for update",
			drop:    "drop table if exists hibernate_sequences",
		},
		{
			dialect: dialect.PostgreSQL,
			sel:     "select tbl.next_val from hibernate_sequences tbl where tbl.sequence_name = ? for update of tbl",
			drop:    "drop table if exists hibernate_sequences cascade",
		},
		{
			dialect: dialect.SQLite,
			sel:     "select tbl.next_val from hibernate_sequences tbl where tbl.sequence_name = ?",
			drop:    "drop table if exists hibernate_sequences",
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			stmts := buildStatements(cfg, tt.dialect)
			assert.Equal(t, tt.sel, stmts.selectSQL)
			assert.Equal(t, "insert into hibernate_sequences (sequence_name, next_val) values (?, ?)", stmts.insertSQL)
			assert.Equal(t, "update hibernate_sequences set next_val = ? where next_val = ? and sequence_name = ?", stmts.updateSQL)

			assert.Equal(t, []string{
				"create table hibernate_sequences (sequence_name varchar(255) not null, next_val bigint, primary key (sequence_name))",
			}, createStatements(cfg, tt.dialect))
			assert.Equal(t, []string{tt.drop}, dropStatements(cfg, tt.dialect))
		})
	}
}

func TestIdentifierType(t *testing.T) {
	tests := []struct {
		name string
		want IdentifierType
	}{
		{"", Int64},
		{"long", Int64},
		{"int32", Int32},
		{"INT", Int32},
		{"short", Int16},
	}
	for _, tt := range tests {
		got, err := ParseIdentifierType(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseIdentifierType("uuid")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.NoError(t, Int16.Check(32767))
	assert.ErrorIs(t, Int16.Check(32768), ErrIdentifierOverflow)
	assert.NoError(t, Int32.Check(1<<31-1))
	assert.ErrorIs(t, Int32.Check(1<<31), ErrIdentifierOverflow)
	assert.NoError(t, Int64.Check(1<<62))
	assert.Equal(t, "int16", Int16.String())
}
