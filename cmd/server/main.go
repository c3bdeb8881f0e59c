package main

import (
	"github.com/corvid-labs/magpie/internal/server"
	"github.com/corvid-labs/magpie/internal/util"
	"github.com/corvid-labs/magpie/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	log := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})

	server.Init(log)
}
