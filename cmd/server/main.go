package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

var (
	exitFunc = defaultExit
	exit     = os.Exit
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout); err != nil {
		exitFunc(err)
	}
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func defaultExit(err error) {
	log.Printf("whiteboard: %v", err)
	exit(1)
}
