package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/names"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <player> <college>",
		Short: "Find the profile page for one player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			slug := names.Slug(args[0])
			res, err := appInstance.Resolver().Resolve(cmd.Context(), slug, args[1])
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, resolver.ErrNoMatch):
				_, _ = fmt.Fprintf(out, "no profile for %q at %q\n", args[0], args[1])
				return nil
			case errors.Is(err, resolver.ErrEmptySlug):
				return fmt.Errorf("player name %q has no usable characters", args[0])
			case err != nil:
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", res.Candidate.URL, res.Signal)
			return nil
		},
	}
}
