package relay

//go:generate mockgen -typed -package=relay -destination=./mocks.go -source=./interface.go

// Reporter emits a line of output of the node with the given index.
type Reporter interface {
	Report(index int, line string) error
}
