// Package idgen 在普通数据表上模拟数据库序列，并在进程内批量缓存标识符。
//
// 段存储保存每个段的计数器，多个互不协调的进程通过带旧值条件的更新语句
// 并发推进同一个计数器；优化器决定多少次 Generate 对应一次存储访问：
//
//   - none：每次调用访问一次存储
//   - hilo：存储保存 hi，本地展开为 increment_size 个值
//   - pooled：每次刷新把计数器推进 increment_size，计数器为区间上界
//   - pooled-lo：同 pooled，取回的值本身即区间内第一个值
//
// 段存储可以是关系表（TableGenerator），也可以是 etcd 或 Redis 的单个 key
// （SegmentGenerator）。Registry 按实体名称管理多个生成器。
package idgen
