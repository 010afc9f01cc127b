package cli

import (
	"github.com/spf13/cobra"
)

// newCompletionCommand creates the "completion" command that generates
// shell completion scripts for bash, zsh, fish, and powershell.
func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for spin.

To load completions:

Bash:
  $ source <(spin completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ spin completion bash > /etc/bash_completion.d/spin
  # macOS:
  $ spin completion bash > $(brew --prefix)/etc/bash_completion.d/spin

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ spin completion zsh > "${fpath[1]}/_spin"

Fish:
  $ spin completion fish | source

  # To load completions for each session, execute once:
  $ spin completion fish > ~/.config/fish/completions/spin.fish

PowerShell:
  PS> spin completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return cmd.Help()
			}
		},
	}

	return cmd
}
