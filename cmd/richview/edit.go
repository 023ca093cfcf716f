package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/richview/internal/app"
	"github.com/dshills/richview/internal/binding"
	"github.com/dshills/richview/internal/surface/term"
)

func newEditCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "edit file",
		Short: "Edit a file in the terminal; Ctrl-P toggles the rendered preview, Ctrl-Q quits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("creating terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("initializing terminal: %w", err)
			}
			defer screen.Fini()

			var surf *term.Surface
			a, err := env.newApp(ctx, term.NewFactory(screen, func(s *term.Surface) { surf = s }),
				app.WithWatching(true),
				// Log lines would corrupt the screen.
				app.WithLogger(app.NewLogger(env.cfg().Logging, io.Discard)),
			)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.Open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			if surf == nil {
				return errors.New("terminal surface was not created")
			}
			b.Resize(screen.Size())

			runErr := surf.Run(ctx)
			if err := flush(b); err != nil {
				return err
			}
			if errors.Is(runErr, context.Canceled) {
				return nil
			}
			return runErr
		},
	}
}

// flush saves edits still waiting for the quiet period.
func flush(b *binding.Binding) error {
	if !b.PendingCommit() {
		return nil
	}
	return b.Commit(context.Background())
}
