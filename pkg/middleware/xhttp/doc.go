// Package xhttp 提供 HTTP 中间件，为每个请求建立 sqlmark 执行单元上下文。
//
// 中间件在请求入口创建 Store 注入 context，写入 controller/action 标签
// （默认取路由模式与请求方法，可替换解析器），请求结束时负责 Clear——
// Store 的生命周期归请求所有，处理器内产生的查询自动携带这些标签。
//
// 可选能力：
//   - WithRequestID  : 透传 X-Request-ID，缺失时用 UUID 生成，写入 request_id 标签
//   - WithTraceparent: 从当前 OpenTelemetry span 提取 W3C traceparent 写入标签，
//     数据库侧日志可直接关联到分布式追踪
//
// 处理器内可继续用 Store 写入业务标签：
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    xmark.FromContext(r.Context()).Set(map[string]any{"tenant": tenantID})
//	    ...
//	}
package xhttp
