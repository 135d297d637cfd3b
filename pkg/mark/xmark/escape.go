package xmark

import "regexp"

// =============================================================================
// 注释定界符剥离
// =============================================================================

// 注释开闭定界符的单轮匹配模式：
//   - 开：`/` + 一个或多个 `*`，可带优化器提示的 `+` 与一个尾随空白（如 `/*+ `）
//   - 闭：可带一个前导空白 + 一个或多个 `*` + `/`
var (
	commentOpen  = regexp.MustCompile(`/\*+\+?\s?`)
	commentClose = regexp.MustCompile(`\s?\+?\*+/`)
)

// stripDelimiters 迭代剥离内容中的注释定界符序列，直到不动点。
//
// 单轮替换对构造性的嵌套序列不充分：`/*/**/*/` 剥掉内层后两侧拼接出新的
// 定界符。因此反复执行"删除所有开序列、删除所有闭序列"直到字符串不再变化。
// 不动点处字符串中不含任何 `/*` 或 `*/` 子串，包裹后的注释不可能被提前闭合，
// 也无法夹带额外的注释语法。
//
// 删除而非替换为占位符：占位符本身可能与残余字符重新拼出定界符。
func stripDelimiters(s string) string {
	for {
		next := commentClose.ReplaceAllString(commentOpen.ReplaceAllString(s, ""), "")
		if next == s {
			return s
		}
		s = next
	}
}
