package cli

import (
	"quiz-attempt-service/internal/config"

	"github.com/spf13/cobra"
)

// NewSeedCmd imports quizzes and wallet deposits from a YAML file into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Import quizzes and wallet deposits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			path := cfg.Seed.Path
			if len(args) == 1 {
				path = args[0]
			}
			c, err := buildComponents(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			return seedFromFile(cmd.Context(), c, path)
		},
	}
}
