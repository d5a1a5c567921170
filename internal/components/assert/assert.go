package assert

import "fmt"

// NotNil panics if value is nil, name identifies the value in the panic message.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("%s: expected value to be not nil", name))
	}
}

func NotEmptyStr(str, name string) {
	if str == "" {
		panic(fmt.Sprintf("%s: expected string to be non-empty", name))
	}
}
