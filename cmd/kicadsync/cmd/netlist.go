package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadsync/pkg/kicadio"
)

var netlistOut string

var netlistCmd = &cobra.Command{
	Use:   "netlist <project_dir>",
	Short: "Export a project's components and nets as a .net netlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetlist,
}

func init() {
	netlistCmd.Flags().StringVarP(&netlistOut, "output", "o", "", "output file (defaults to stdout)")
	rootCmd.AddCommand(netlistCmd)
}

func runNetlist(cmd *cobra.Command, args []string) error {
	dir := args[0]
	loaded, err := kicadio.LoadProject(dir)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}

	out, err := netlist.Export(loaded.Project)
	if err != nil {
		return fmt.Errorf("exporting netlist: %w", err)
	}

	if netlistOut == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(netlistOut, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", netlistOut, err)
	}
	log.WithField("file", netlistOut).Info("wrote netlist")
	return nil
}
