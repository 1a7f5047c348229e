package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/eavesdrop"
	"github.com/dshills/eavesdrop/tcellbridge"
)

func keysCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Publish terminal input as events until Esc",
		Args:  cobra.NoArgs,
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
			return runKeys(cmd.Context(), log)
		},
	}
}

func runKeys(ctx context.Context, log *zap.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	reg := eavesdrop.NewRegistry(eavesdrop.WithLogger(log))
	pub := reg.NewPublisher("terminal")
	bridge := tcellbridge.New(screen, pub, tcellbridge.WithLogger(log))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	row := 0
	draw := func(line string) {
		_, height := screen.Size()
		if row >= height {
			row = 0
			screen.Clear()
		}
		for col, r := range line {
			screen.SetContent(col, row, r, nil, tcell.StyleDefault)
		}
		row++
		screen.Show()
	}
	draw("press keys to publish events, Esc quits")

	_, err = pub.Listen(tcellbridge.EventKeyPress, func(ctx context.Context, evt eavesdrop.Event) error {
		if code, ok := evt.Field("code"); ok && code == int(tcell.KeyEscape) {
			cancel()
			return nil
		}
		key, _ := evt.Field("key")
		draw(fmt.Sprintf("%s  key=%v", evt.Name(), key))
		return nil
	})
	if err != nil {
		return err
	}
	_, err = pub.Listen(tcellbridge.EventResize, func(ctx context.Context, evt eavesdrop.Event) error {
		w, _ := evt.Field("width")
		h, _ := evt.Field("height")
		draw(fmt.Sprintf("%s  %vx%v", evt.Name(), w, h))
		return nil
	})
	if err != nil {
		return err
	}

	if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
