package main

import (
	"github.com/kralicky/streamrelay/pkg/cli/streamrelay"

	_ "github.com/kralicky/streamrelay/pkg/logger"
)

func main() {
	streamrelay.Execute()
}
