package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feichai0017/idrouter/internal/agent/candidate"
	"github.com/feichai0017/idrouter/internal/utils/validator"
)

func newValidateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [id...]",
		Short: "Check the identifier pattern and the checksum of the given identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if _, err := candidate.Compile(c.cfg.Pipeline.Pattern); err != nil {
				return fmt.Errorf("pattern %q: %w", c.cfg.Pipeline.Pattern, err)
			}
			fmt.Fprintf(out, "pattern\t%s\tok\n", c.cfg.Pipeline.Pattern)

			invalid := 0
			for _, id := range args {
				state := "valid"
				if !validator.Validate(id) {
					state = "invalid"
					invalid++
				}
				fmt.Fprintf(out, "%s\t%s\n", id, state)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d identifiers are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
