package xconf

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Path 配置树中 sqlmark 配置所在的子树路径，默认为 ""（根）。
	// 用于把 sqlmark 配置内嵌到应用的大配置文件中，例如 "database.sqlmark"。
	Path string
}

// Option 定义配置选项函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置选项。
func defaultOptions() *Options {
	return &Options{
		Delim: ".",
	}
}

// WithDelim 设置配置键分隔符。
// 默认为 "."，例如 "escape_cache.size"。
func WithDelim(delim string) Option {
	return func(o *Options) {
		o.Delim = delim
	}
}

// WithPath 设置 sqlmark 配置子树路径。
// 默认从配置根读取。
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}
