package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jas88/sharpdicom/internal/logging"
)

// NewRoot builds the dicomctl command tree: echo/store (SCU), serve (SCP),
// and decode (standalone JPEG 2000 frame inspection).
func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicomctl",
		Short: "a CLI for exercising the DICOM upper-layer network stack",
		Long:  "dicomctl drives association SCU requests, runs a storage SCP, and inspects JPEG 2000 codestreams",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
				level = slog.LevelInfo
			}
			slog.SetDefault(logging.Logger(os.Stdout, false, level))
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(gitsha),
		NewEchoCmd(ctx),
		NewStoreCmd(ctx),
		NewServeCmd(ctx),
		NewDecodeCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

// NewVersionCmd reports the build's git SHA.
func NewVersionCmd(gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
}
