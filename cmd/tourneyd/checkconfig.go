package main

import (
	"fmt"

	"github.com/feltworks/tourneyd/internal/server"
)

// CheckConfigCmd validates a configuration file without starting
// anything.
type CheckConfigCmd struct {
	Path string `arg:"" type:"existingfile" help:"HCL configuration file"`
}

func (c *CheckConfigCmd) Run() error {
	cfg, err := server.LoadConfig(c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", c.Path)
	fmt.Printf("  tournament    %s\n", cfg.Tournament.Name)
	fmt.Printf("  listen        %s\n", cfg.Server.Listen)
	fmt.Printf("  stack         %d\n", cfg.Tournament.StartingStack)
	fmt.Printf("  capacity      %d\n", cfg.Tournament.TableCapacity)
	fmt.Printf("  levels        %d\n", len(cfg.Tournament.Levels))
	if cfg.History != nil {
		fmt.Printf("  history       %s\n", cfg.History.Dir)
	}
	return nil
}
