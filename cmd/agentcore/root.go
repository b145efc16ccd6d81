package main

import (
	"fmt"
	"os"

	"github.com/aretw0/agentcore/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "agentcore runs an LLM agent behind a tool guardrail",
	Long: `agentcore carries out a task by asking a language model for one step at a time.
Every tool call the model proposes is checked by the guardrail before it runs,
and every step is streamed to the client driving the session.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: agentcore.toml, .yaml, .json or config.toml in the current directory)")
	rootCmd.PersistentFlags().String("work-dir", "", "Directory the file tools operate in")
	rootCmd.PersistentFlags().String("env-file", ".env", "File of KEY=value pairs loaded into the environment")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

// setup reads the persistent flags and loads the configuration.
func setup(cmd *cobra.Command) (*cli.Env, error) {
	flags := cmd.Flags()
	var opts cli.Options
	opts.ConfigPath, _ = flags.GetString("config")
	opts.WorkDir, _ = flags.GetString("work-dir")
	opts.EnvFile, _ = flags.GetString("env-file")
	opts.Debug, _ = flags.GetBool("debug")
	return cli.Setup(opts)
}
