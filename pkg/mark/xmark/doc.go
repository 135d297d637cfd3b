// Package xmark 提供 SQL 查询注释标注能力。
//
// 将应用层执行上下文（应用名、进程号、controller/action、任务名、自定义值）
// 序列化为 SQL 注释 `/*k1:v1,k2:v2*/`，拼接到查询语句前或后，
// 使数据库侧观察到的查询可以回溯到产生它的应用上下文。
//
// # 核心组件
//
// 上下文存储（Store）- 每个逻辑执行单元（请求/任务）一份：
//   - Set          : 合并写入键值
//   - SetScoped    : 作用域写入，body 结束后在所有退出路径上恢复原值
//   - Clear        : 清空（由执行单元生命周期的所有者调用）
//
// 标签模型（Spec/Handler/Registry）：
//   - Spec     : 有序标签清单的一项，裸键或键+显式 Handler
//   - Handler  : 封闭变体 Static / Producer / ContextProducer，无反射分派
//   - Registry : 键 -> 默认 Handler，裸键未命中时回退到 Store 直查
//
// 标注器（Annotator）：
//   - Render   : 按配置顺序解析标签，产出 `/*...*/` 注释（可缓存）
//   - Annotate : 将注释按 Prepend 配置拼接到 SQL 前或后
//
// # 命名约定
//
//	With(ctx, store)       - 注入：将 Store 写入 context
//	FromContext(ctx)       - 读取：从 context 读取 Store，缺失返回 nil
//	Ensure(ctx)            - 确保存在：若缺失则创建并注入
//
// # 安全性
//
// 注释内容经过定点迭代剥离，任意嵌套/拼接的 `/*`、`*/` 序列都会被移除，
// 最终字符串中在结尾闭合符之前不会出现未转义的内部闭合符（注入安全）。
//
// # 并发模型
//
// Store 按执行单元隔离，内部互斥锁保护；Annotator 配置为不可变快照 +
// 原子交换，读路径无锁。标签处理器（Handler）的错误不被吞掉，
// 原样传播给 Render/Annotate 的调用方。
//
// # 哨兵错误
//
//	ErrNilContext  - context 为 nil
//	ErrEmptyTagKey - 标签键为空
package xmark
