package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose     bool
	libraryPath string

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "kicadsync",
	Short: "Bidirectional synchronization between a canonical circuit model and KiCad projects",
	Long: `kicadsync is the thin driver around the synchronization core:
  - load a KiCad project directory into a canonical circuit model
  - generate a fresh KiCad project from a canonical circuit model
  - sync a canonical circuit model against an existing project, preserving
    user-placed positions, rotations, and annotations
  - export a project's nets as a .net netlist

Examples:
  kicadsync load ./my-project
  kicadsync netlist ./my-project -o my-project.net
  kicadsync sync ./my-project --target ./my-project-updated`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&libraryPath, "library-path", "", "directory to search for symbol libraries (repeatable via :-separated list)")

	cobra.OnInitialize(func() {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	})
}
