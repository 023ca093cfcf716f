package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/richview/internal/disambig"
	"github.com/dshills/richview/internal/opener"
	"github.com/dshills/richview/internal/surface"
)

func newScoreCmd(env *cmdEnv) *cobra.Command {
	var base float64

	cmd := &cobra.Command{
		Use:   "score [flags] uri...",
		Short: "Print the rendered editor's priority for each URI or path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No surface is ever created while scoring.
			a, err := env.newApp(cmd.Context(), surface.MemoryFactory(nil))
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, raw := range args {
				score, err := a.Score(raw, opener.Score(base))
				if err != nil {
					return fmt.Errorf("%s: %w", raw, err)
				}
				fmt.Fprintf(out, "%s\t%s\n", strconv.FormatFloat(float64(score), 'g', -1, 64), raw)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&base, "base", 0, "priority of the competing text editor (0 means none)")
	return cmd
}

func newEncodeCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "encode uri...",
		Short: "Add the rendered editor's marker to each URI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mapURIs(cmd, args, disambig.New(env.cfg().Surface.ID).EncodeString)
		},
	}
}

func newDecodeCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "decode uri...",
		Short: "Remove the rendered editor's marker from each URI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mapURIs(cmd, args, disambig.New(env.cfg().Surface.ID).DecodeString)
		},
	}
}

func mapURIs(cmd *cobra.Command, args []string, fn func(string) (string, error)) error {
	out := cmd.OutOrStdout()
	for _, raw := range args {
		s, err := fn(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", raw, err)
		}
		fmt.Fprintln(out, s)
	}
	return nil
}
