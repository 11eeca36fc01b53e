package idgen

import (
	"context"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/db"
	"github.com/ceyewan/tablegen/dialect"
	"github.com/ceyewan/tablegen/xerrors"
)

// TableGenerator 基于分段表的标识符生成器
//
// 一张表可以同时服务多个互不相关的生成器，每个生成器占用其中一行（段）。
// 默认表结构：
//
//	create table hibernate_sequences (
//		sequence_name varchar(255) not null,
//		next_val bigint,
//		primary key (sequence_name)
//	)
//
// 使用示例：
//
//	gen, err := idgen.NewTableGenerator(database, idgen.Int64, idgen.Params{
//		"segment_value":  "orders",
//		"increment_size": 50,
//	}, idgen.WithLogger(logger))
//	id, err := gen.Generate(ctx)
type TableGenerator struct {
	core    *core
	store   *tableStore
	db      db.DB
	dialect dialect.Dialect
}

// NewTableGenerator 解析参数、构造 SQL 模板并选择优化器
//
// 构造过程不访问数据库，表可以在之后通过 EnsureSchema 或外部迁移创建。
func NewTableGenerator(database db.DB, idType IdentifierType, params Params, opts ...Option) (*TableGenerator, error) {
	if database == nil {
		return nil, ErrConnectorNil
	}
	c, o, err := prepare(idType, params, opts)
	if err != nil {
		return nil, err
	}

	d := o.dialect
	if d == nil {
		if d, err = dialect.ForDriver(database.Driver()); err != nil {
			return nil, configError(CodeInvalidParam, "%v", err)
		}
	}

	store := &tableStore{
		db:        database,
		cfg:       c.cfg,
		stmts:     buildStatements(c.cfg, d),
		txOptions: o.txOptions,
		logger:    o.logger,
		sqlLogger: o.logger.WithNamespace("sql"),
		metrics:   c.metrics,
	}
	c.store = store

	o.logger.Info("table generator configured",
		clog.String("table", c.cfg.TableName),
		clog.String("segment", c.cfg.SegmentValue),
		clog.String("strategy", string(c.cfg.Strategy)),
		clog.Int64("increment_size", c.cfg.IncrementSize),
		clog.String("dialect", d.Name()),
	)

	return &TableGenerator{core: c, store: store, db: database, dialect: d}, nil
}

// Generate 返回下一个标识符
func (g *TableGenerator) Generate(ctx context.Context) (int64, error) {
	return g.core.generate(ctx)
}

// SchemaCreateStatements 返回建表语句
func (g *TableGenerator) SchemaCreateStatements() []string {
	return createStatements(g.core.cfg, g.dialect)
}

// SchemaDropStatements 返回删表语句
func (g *TableGenerator) SchemaDropStatements() []string {
	return dropStatements(g.core.cfg, g.dialect)
}

// EnsureSchema 表不存在时执行建表语句，返回是否创建了表
func (g *TableGenerator) EnsureSchema(ctx context.Context) (bool, error) {
	conn := g.db.DB(ctx)
	if conn.Migrator().HasTable(g.core.cfg.TableName) {
		return false, nil
	}
	for _, stmt := range g.SchemaCreateStatements() {
		if err := conn.Exec(stmt).Error; err != nil {
			return false, xerrors.Wrapf(err, "create table %s", g.core.cfg.TableName)
		}
	}
	g.core.logger.InfoContext(ctx, "segment table created", clog.String("table", g.core.cfg.TableName))
	return true, nil
}

// Config 返回解析后的配置副本
func (g *TableGenerator) Config() TableConfig { return *g.core.cfg }

// AccessCount 成功刷新的次数
func (g *TableGenerator) AccessCount() int64 { return g.store.AccessCount() }

func (g *TableGenerator) Optimizer() Optimizer { return g.core.optimizer }

// GeneratorKey 生成器的持久化标识，即表名
func (g *TableGenerator) GeneratorKey() string { return g.core.cfg.TableName }
