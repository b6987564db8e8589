package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate the shell completion script for dittocore.

Bash:
  $ dittocore completion bash > /etc/bash_completion.d/dittocore

Zsh (requires compinit):
  $ dittocore completion zsh > "${fpath[1]}/_dittocore"

Fish:
  $ dittocore completion fish > ~/.config/fish/completions/dittocore.fish

PowerShell:
  PS> dittocore completion powershell | Out-String | Invoke-Expression

Start a new shell for the completions to take effect.`,
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
		}
		return fmt.Errorf("unsupported shell %q", args[0])
	},
}

// registerFlagCompletions adds value completion for flags with a fixed set
// of accepted values.
func registerFlagCompletions() {
	fixed := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}

	_ = statusCmd.RegisterFlagCompletionFunc("output", fixed("table", "json", "yaml", "toml"))
	_ = tokenCmd.RegisterFlagCompletionFunc("output", fixed("table", "json", "yaml", "toml"))
	_ = tokenCmd.RegisterFlagCompletionFunc("role", fixed("admin", "viewer"))
	_ = watchCmd.RegisterFlagCompletionFunc("output", fixed("table", "json"))
	_ = logsCmd.RegisterFlagCompletionFunc("since", fixed("5m", "15m", "1h", "24h"))
}
