package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/eavesdrop"
	"github.com/dshills/eavesdrop/script"
)

func scriptCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.lua>",
		Short: "Run a Lua script wired to the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			log, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			reg := eavesdrop.NewRegistry(eavesdrop.WithLogger(log))
			eng := script.New(reg, script.WithLogger(log), script.WithPublisher(reg.NewPublisher("script")))
			defer eng.Close()
			return eng.RunFile(args[0])
		},
	}
}
