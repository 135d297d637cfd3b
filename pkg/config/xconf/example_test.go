package xconf_test

import (
	"fmt"

	"github.com/omeyang/sqlmark/pkg/config/xconf"
	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// Example_quickStart 演示从配置物化 Annotator 的典型流程。
func Example_quickStart() {
	l, err := xconf.LoadBytes([]byte(`
application: myapp
tags:
  - application
  - controller
  - env: production
`), xconf.FormatYAML)
	if err != nil {
		fmt.Println("load:", err)
		return
	}

	a, err := l.Annotator()
	if err != nil {
		fmt.Println("annotator:", err)
		return
	}

	s := xmark.NewStore()
	s.Set(map[string]any{xmark.KeyController: "users"})

	annotated, _ := a.Annotate(s, "SELECT 1")
	fmt.Println(annotated)

	// Output:
	// SELECT 1 /*application:myapp,controller:users,env:production*/
}
