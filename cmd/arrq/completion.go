package main

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for arrq.

To load completions:

Bash:
  $ source <(arrq completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ arrq completion bash > /etc/bash_completion.d/arrq
  # macOS:
  $ arrq completion bash > $(brew --prefix)/etc/bash_completion.d/arrq

Zsh:
  $ source <(arrq completion zsh)
  # To load completions for each session, execute once:
  $ arrq completion zsh > "${fpath[1]}/_arrq"

Fish:
  $ arrq completion fish | source
  # To load completions for each session, execute once:
  $ arrq completion fish > ~/.config/fish/completions/arrq.fish

PowerShell:
  PS> arrq completion powershell | Out-String | Invoke-Expression
  # To load completions for each session, execute once:
  PS> arrq completion powershell > arrq.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
