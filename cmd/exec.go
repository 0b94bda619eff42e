package cmd

import (
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec [task ...]",
	Short: "Run tasks to completion without a console",
	Long: `Run the worker pool until the task source drains, printing each result
to stdout. No console is attached, so exec suits scripts and pipelines:

  scatter exec 'sleep 1' 'date' 'hostname'
  scatter exec --tasks build.txt --workers 8`,
	Args: cobra.ArbitraryArgs,
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	return run(cmd, args, true)
}
