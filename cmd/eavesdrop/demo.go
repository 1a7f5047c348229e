package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/eavesdrop"
)

// Greeting is the demo's declared schema.
type Greeting struct {
	Msg string
}

var greetingEvent = eavesdrop.Define[Greeting]()

func demoCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through scoped listeners, fire-once, and eavesdropping",
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
			return runDemo(cmd.Context(), log)
		},
	}
}

func runDemo(ctx context.Context, log *zap.Logger) error {
	reg := eavesdrop.NewRegistry(eavesdrop.WithLogger(log))
	provider := reg.NewPublisher("provider")

	listener := func(label string) eavesdrop.Listener {
		return func(ctx context.Context, evt eavesdrop.Event) error {
			g, _ := evt.Value().(Greeting)
			fmt.Printf("%s heard: %s\n", label, g.Msg)
			return nil
		}
	}
	tap := func(label string) eavesdrop.Eavesdropper {
		return func(ctx context.Context, evt eavesdrop.Event, origin *eavesdrop.Publisher) error {
			g, _ := evt.Value().(Greeting)
			from := "global scope"
			if origin != nil {
				from = origin.String()
			}
			fmt.Printf("%s spotted: %s (via %s)\n", label, g.Msg, from)
			return nil
		}
	}

	h1, err := provider.Listen(greetingEvent, listener("listener-1"))
	if err != nil {
		return err
	}
	h2, err := provider.Listen(greetingEvent, listener("listener-2"))
	if err != nil {
		return err
	}
	if _, err := provider.ListenOnce(greetingEvent, listener("listener-once")); err != nil {
		return err
	}
	h4, err := reg.Eavesdrop(greetingEvent, tap("eavesdropper"))
	if err != nil {
		return err
	}
	if _, err := reg.EavesdropOnce(greetingEvent, tap("eavesdropper-once")); err != nil {
		return err
	}

	// Five responses: three scoped listeners, two eavesdroppers.
	fmt.Println("first wave:")
	if err := provider.Publish(ctx, greetingEvent.New(Greeting{Msg: "Hello, World!"})); err != nil {
		return err
	}

	// The fire-once registrations are gone; drop listener-2 as well.
	h2.StopListening()

	fmt.Println("\nsecond wave:")
	if err := provider.Publish(ctx, greetingEvent.New(Greeting{Msg: "Singular Hello, World!"})); err != nil {
		return err
	}

	// No global listeners exist, so only the eavesdropper responds.
	fmt.Println("\nglobal broadcast:")
	if err := reg.Publish(ctx, greetingEvent.New(Greeting{Msg: "Global Hello, World!"})); err != nil {
		return err
	}

	fmt.Println("\nstopping the rest")
	h1.StopListening()
	h4.StopListening()

	fmt.Println("\nfinal wave (lost to the void):")
	if err := reg.Publish(ctx, greetingEvent.New(Greeting{Msg: "Message to the Void..."})); err != nil {
		return err
	}

	s := reg.Stats()
	fmt.Printf("\npublished=%d delivered=%d listeners=%d eavesdroppers=%d\n",
		s.Published, s.Delivered, s.Listeners, s.Eavesdroppers)
	return nil
}
