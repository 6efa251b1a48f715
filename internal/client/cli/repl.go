package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// executor runs one parsed command line. The real App satisfies it; tests
// provide a lightweight stub.
type executor interface {
	execute(ctx context.Context, args []string) error
}

// runREPL reads a line, splits it into arguments and hands them to e. It
// exits on EOF, on "exit"/"quit" or when ctx is cancelled. Command errors
// are printed and the loop carries on.
func runREPL(ctx context.Context, e executor, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "bookdrive %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(w)
			return
		}

		args, perr := splitArgs(strings.TrimSpace(line))
		if perr != nil {
			fmt.Fprintln(w, "Error:", perr)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		if err := e.execute(ctx, args); err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}
}
