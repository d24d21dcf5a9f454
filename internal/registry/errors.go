package registry

import "fmt"

// pushPanicError はConn.Push中に発生したパニックを表す。
type pushPanicError struct {
	value any
}

func (e *pushPanicError) Error() string {
	return fmt.Sprintf("送信中にパニックが発生: %v", e.value)
}
