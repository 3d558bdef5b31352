package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Review behavior flags",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List behavior flags",
	Args:  cobra.NoArgs,
	RunE:  runFlagsList,
}

var flagsResolveCmd = &cobra.Command{
	Use:   "resolve <flag-id>",
	Short: "Mark a flag reviewed",
	Long: `Mark a flag reviewed. Resolved flags still count toward the behavior
score until they fall out of the scoring window.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlagsResolve,
}

var flagsDays int

func init() {
	rootCmd.AddCommand(flagsCmd)
	flagsCmd.AddCommand(flagsListCmd, flagsResolveCmd)

	flagsListCmd.Flags().IntVar(&flagsDays, "days", 30, "look back this many days (0 for all)")
}

func runFlagsList(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags, err := a.svc.Flags(cmd.Context(), id, time.Duration(flagsDays)*24*time.Hour)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), flags, func(w io.Writer) {
		for _, f := range flags {
			state := "open"
			if f.Resolved {
				state = "resolved"
			}
			fmt.Fprintf(w, "%s  %s  %-20s %-8s %-8s %s\n",
				f.ID, f.DetectedAt.Format("2006-01-02 15:04"), f.Type, f.Severity, state, f.Details)
		}
	})
}

func runFlagsResolve(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.ResolveFlag(cmd.Context(), id, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s\n", args[0])
	return nil
}
