package xmark

import (
	"strings"
	"testing"
)

// FuzzStripDelimiters 验证注入安全不变量：
// 剥离结果中不得残留任何注释开/闭序列，且剥离是幂等的。
func FuzzStripDelimiters(f *testing.F) {
	seeds := []string{
		"",
		"controller:users,action:show",
		"/*",
		"*/",
		"/*/**/*/",
		"/*+ hint */",
		"a/*b*/c",
		strings.Repeat("/*", 32),
		strings.Repeat("*/", 32),
		"**//**//**/",
		"* /* */ *",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		got := stripDelimiters(input)

		if strings.Contains(got, "/*") {
			t.Errorf("stripDelimiters(%q) = %q contains an open delimiter", input, got)
		}
		if strings.Contains(got, "*/") {
			t.Errorf("stripDelimiters(%q) = %q contains a close delimiter", input, got)
		}
		if again := stripDelimiters(got); again != got {
			t.Errorf("stripDelimiters not idempotent: %q -> %q -> %q", input, got, again)
		}
	})
}
