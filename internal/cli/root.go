package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/esextract/internal/cli/commands"
	"github.com/nonibytes/esextract/internal/cliopt"
	"github.com/nonibytes/esextract/internal/jobconf"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	return Run(argv, os.Stdout, os.Stderr)
}

// Run is Execute with explicit output streams.
func Run(argv []string, stdout, stderr io.Writer) int {
	g := cliopt.DefaultGlobalOptions()
	env := &cliopt.Env{G: &g, Viper: jobconf.NewViper(), Out: stdout, Err: stderr}

	root := &cobra.Command{
		Use:           "esextract",
		Short:         "Extract Elasticsearch documents into flat typed rows",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)
	cliopt.BindGlobalFlags(root.PersistentFlags(), &g)
	if err := cliopt.BindConnectionFlags(root.PersistentFlags(), env.Viper); err != nil {
		root.PrintErrln("error:", err)
		return 2
	}
	if err := bindLogFlags(root, env); err != nil {
		root.PrintErrln("error:", err)
		return 2
	}

	root.AddCommand(
		commands.NewRunCmd(env),
		commands.NewCheckCmd(env),
		commands.NewSchemaCmd(env),
	)

	if err := root.Execute(); err != nil {
		root.PrintErrln("error:", err)
		return 1
	}
	return 0
}

// bindLogFlags lets ESX_LOG_LEVEL and ESX_LOG_FORMAT stand in for the flags.
func bindLogFlags(root *cobra.Command, env *cliopt.Env) error {
	if err := env.Viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level")); err != nil {
		return err
	}
	return env.Viper.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))
}
