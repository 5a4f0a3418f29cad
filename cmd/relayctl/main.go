package main

import (
	"github.com/kralicky/streamrelay/pkg/cli/relayctl"

	_ "github.com/kralicky/streamrelay/pkg/logger"
)

func main() {
	relayctl.Execute()
}
