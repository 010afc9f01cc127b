package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spinframework/spin-cli/internal/meta"
)

// newVersionCommand creates the "version" command.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", meta.AppName, meta.Version)
			fmt.Printf("  commit:     %s\n", meta.Commit)
			fmt.Printf("  build time: %s\n", meta.BuildTime)
			fmt.Printf("  go:         %s\n", runtime.Version())
			fmt.Printf("  os/arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
