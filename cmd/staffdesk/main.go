package main

import (
	"context"
	"fmt"
	"os"

	"staffdesk/internal/app/commands"
)

func main() {
	if err := commands.New().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
