package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCmdCompletions(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "completions SHELL",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dbmig.

Bash:
  eval "$(dbmig completions bash)"

Zsh:
  dbmig completions zsh > "${fpath[1]}/_dbmig"

Fish:
  dbmig completions fish > ~/.config/fish/completions/dbmig.fish

PowerShell:
  dbmig completions powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return genCompletion(cmd, args[0])
		},
	}
}

func newCmdBashCompletion(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:    "bash-completion",
		Short:  "Generate a bash completion script",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.logger.Warn("the bash-completion command is deprecated, use `dbmig completions bash` instead")
			return genCompletion(cmd, "bash")
		},
	}
}

func genCompletion(cmd *cobra.Command, shell string) error {
	out := cmd.OutOrStdout()
	switch shell {
	case "bash":
		return cmd.Root().GenBashCompletionV2(out, true)
	case "zsh":
		return cmd.Root().GenZshCompletion(out)
	case "fish":
		return cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(out)
	default:
		return fmt.Errorf("unsupported shell %q", shell)
	}
}
