// Package xjob 为 robfig/cron 定时任务提供 SQL 注释标签的生产者适配。
//
// 两种接入方式：
//
//   - [Job]：包装一个带 context 的任务函数，每次执行创建独立的
//     [xmark.Store]，写入 job 标签并注入 context，任务内发起的查询
//     自动携带 `job:<name>`。执行结束后清空 Store。
//   - [Wrapper]：作用于已有 cron.Job 的 cron.JobWrapper，适合多个
//     任务共享同一个 Store 的场景。执行期间以作用域方式写入 job
//     标签，结束后恢复原值（包括 panic 场景）。
//
// 用法：
//
//	c := cron.New()
//	c.AddJob("0 3 * * *", xjob.Job("nightly_cleanup", func(ctx context.Context) error {
//	    _, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE expired = 1")
//	    return err
//	}))
//
// 任务失败默认通过 log/slog 记录，可用 [WithErrorHandler] 替换。
package xjob
