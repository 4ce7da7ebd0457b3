package relay

import "fmt"

// DecodeError is returned when a node emits a line that is not valid UTF-8.
type DecodeError struct {
	Index int
	Line  []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("node %d emitted invalid utf-8: %q", e.Index, e.Line)
}
