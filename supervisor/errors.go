package supervisor

import (
	"fmt"
	"strings"
)

// SpawnError is returned when a node process could not be started.
type SpawnError struct {
	Index int
	Args  []string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn node %d (%s): %v", e.Index, strings.Join(e.Args, " "), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
