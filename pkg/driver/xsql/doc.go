// Package xsql 提供 database/sql 驱动包装，在查询下发时自动附加 sqlmark 注释。
//
// 包装 driver.Driver / driver.Connector，在 Query/Exec/Prepare 路径上调用
// Annotator.AnnotateContext，把当前执行单元的上下文标签写入 SQL 注释后再
// 交给底层驱动。应用代码无需触碰查询路径：
//
//	a, _ := xmark.New(xmark.Config{Application: "myapp"})
//	xsql.Register("pgx-marked", &stdlib.Driver{}, a)
//	db, _ := sql.Open("pgx-marked", dsn)
//
// # 行为约定
//
//   - 标签解析（Handler）错误原样传播为查询错误，不静默降级
//   - 底层驱动未实现对应 context 接口时返回 driver.ErrSkip，
//     database/sql 自动回退到 Prepare 路径（该路径同样被注释）
//   - 无 context 的旧接口路径（Prepare/Execer/Queryer）没有执行单元可查，
//     仅附加静态/Registry 标签
//   - Skip(ctx) 可按查询粒度跳过注释（如对注释敏感的语句）
//
// 事务、连接生命周期、参数检查等其余 driver 接口全部透传。
package xsql
