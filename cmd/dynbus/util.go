package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danderson/dynbus"
	"github.com/danderson/dynbus/internal/hostval"
)

// readInput returns the contents of the file named by args, or of
// stdin if args is empty or "-".
func readInput(args []string) ([]byte, error) {
	switch len(args) {
	case 0:
		return io.ReadAll(os.Stdin)
	case 1:
		if args[0] == "-" {
			return io.ReadAll(os.Stdin)
		}
		return os.ReadFile(args[0])
	default:
		return nil, fmt.Errorf("too many arguments")
	}
}

// readValues reads host values from the input named by args, in the
// format selected by --format.
func readValues(args []string) ([]dynbus.Value, error) {
	in, err := readInput(args)
	if err != nil {
		return nil, err
	}
	switch globalArgs.Format {
	case "", "yaml":
		return hostval.FromYAML(in)
	case "msgpack":
		return hostval.FromMsgpack(in)
	default:
		return nil, fmt.Errorf("unknown format %q", globalArgs.Format)
	}
}
