package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/chrometester/internal/session"
)

// CreateBinaryCmd creates the binary command, which prints the driver
// executable a session would launch.
func CreateBinaryCmd(cfg func() session.Config) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "binary",
		Short: "Print the resolved chromedriver path",
		Long: `Resolves the chromedriver executable the same way a session does: ` +
			`an explicit --driver-binary-path wins, otherwise the platform build under <root>/bin is used.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			conf := cfg()
			root, err := session.ResolveRootDir(conf.RootDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), session.ResolveBinaryPath(platform, root, conf.BinaryPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", session.Platform(), "Platform to resolve for (darwin, windows, linux, ...)")
	return cmd
}
