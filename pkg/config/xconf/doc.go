// Package xconf 提供 sqlmark 的配置加载与热重载，基于 koanf 实现。
//
// # 设计理念
//
// xconf 定位为 xmark 的薄配置层：负责从 YAML/JSON 文件（或字节数据）读取
// 标签清单与开关，物化为 xmark.Config / xmark.Annotator，并支持文件变更
// 自动重载（基于 fsnotify，内置防抖）。配置治理（必选字段校验、环境变量
// 覆盖）由上层业务框架按需实现。
//
// # 配置结构
//
//	application: myapp      # application 标签取值，为空时该标签省略
//	prepend: false          # true 时注释前置
//	cache: false            # true 时按执行单元缓存渲染结果
//	tags:                   # 有序标签清单，缺省为 [application]
//	  - application         # 裸键：Registry 默认 / Store 直查
//	  - controller
//	  - action
//	  - env: production     # 键 -> 静态值
//	escape_cache:           # 可选：转义结果 LRU
//	  size: 128
//	  ttl: 1m
//
// tags 清单项只接受字符串（裸键）或映射（键 -> 标量静态值），
// 其余结构在加载时整体拒绝并返回 ErrInvalidTagEntry（而非逐项忽略），
// 配置书写错误应当在启动时暴露。
//
// 多键映射项按键的字典序展开以保证确定性（YAML 映射经 koanf 加载后
// 键序不可观测）；需要精确控制顺序时，每项只写一个键，
// 或改用程序化 API（[]xmark.Spec 完整保留调用方顺序）。
//
// # 热重载
//
// Reload 重新读取文件并原子替换 Annotator 的配置快照（xmark 侧无锁读）。
// Watch 监视文件所在目录（兼容 vim/emacs 原子写入），防抖后自动 Reload。
// 重载失败时保留旧配置并通过回调上报错误。
//
// # 哨兵错误
//
//	ErrEmptyPath         - 配置文件路径为空
//	ErrUnsupportedFormat - 不支持的配置格式
//	ErrLoadFailed        - 配置加载失败
//	ErrParseFailed       - 配置解析失败
//	ErrInvalidTagEntry   - tags 清单项结构非法
package xconf
