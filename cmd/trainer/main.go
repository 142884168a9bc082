package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trainer",
		Short:        "Train and evaluate models on CSV datasets from the command line",
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("trainer version %s\n", version))
	root.AddCommand(newRunCmd(), newMCPCmd())
	return root
}
