package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Serve       ServeCmd         `cmd:"" default:"withargs" help:"Run the tournament server"`
	CheckConfig CheckConfigCmd   `cmd:"" name:"check-config" help:"Validate a configuration file"`
	Replay      ReplayCmd        `cmd:"" help:"Replay and audit a hand history file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tourneyd"),
		kong.Description("Automated no-limit hold'em tournament server for bots"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
