// Command flufit prepares the influenza symptom dataset, explores it, and compares
// model families for the configured outcomes.
//
//	flufit prepare --simulate 730
//	flufit explore
//	flufit evaluate --candidates null,linear
//	flufit run --config flufit.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezoic/flufit/config"
	"github.com/ezoic/flufit/pkg/log"
)

// app holds the state shared by the subcommands.
type app struct {
	cfgFile  string
	logLevel string
	logJSON  bool
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "flufit",
		Short:         "Prepare, explore and model the influenza symptom dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "YAML config file (defaults and FLUFIT_* env otherwise)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	f.BoolVar(&a.logJSON, "log-json", false, "write JSON log lines instead of console output")

	root.AddCommand(
		newPrepareCmd(a),
		newExploreCmd(a),
		newEvaluateCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	c, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		c.LogLevel = a.logLevel
	}
	log.SetupLogger(c.LogLevel)
	if a.logJSON {
		log.SetOutput(os.Stderr)
	}
	a.cfg = c
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
