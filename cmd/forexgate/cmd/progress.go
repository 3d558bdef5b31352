package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/forexgate/forexgate/progression"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Check, advance or regress a learner's stage",
}

var progressStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show advancement criteria and regression risk",
	Args:  cobra.NoArgs,
	RunE:  runProgressStatus,
}

var progressAdvanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance to the next stage when every criterion is met",
	Args:  cobra.NoArgs,
	RunE:  runProgressAdvance,
}

var progressRegressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Move back one stage",
	Args:  cobra.NoArgs,
	RunE:  runProgressRegress,
}

var regressReason string

func init() {
	rootCmd.AddCommand(progressCmd)
	progressCmd.AddCommand(progressStatusCmd, progressAdvanceCmd, progressRegressCmd)

	progressRegressCmd.Flags().StringVar(&regressReason, "reason", "", "why the learner moves back (required)")
	progressRegressCmd.MarkFlagRequired("reason")
}

func runProgressStatus(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.svc.RefreshProgress(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), st, func(w io.Writer) { printProgress(w, st) })
}

func printProgress(w io.Writer, st progression.Status) {
	fmt.Fprintf(w, "Stage:          %s\n", st.CurrentStage.Label())
	fmt.Fprintf(w, "Behavior score: %d\n", st.BehaviorScore)
	if st.NextStage != nil {
		fmt.Fprintf(w, "Next stage:     %s (ready: %t)\n", st.NextStage.Label(), st.CanAdvance)
	}

	names := make([]string, 0, len(st.Criteria))
	for name := range st.Criteria {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := st.Criteria[name]
		mark := " "
		if c.Met {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-28s %8.2f / %.2f\n", mark, name, c.Current, c.Required)
	}
	if st.RegressionRisk {
		fmt.Fprintln(w, "Regression risk:")
		for _, r := range st.RegressionReasons {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}

func runProgressAdvance(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.Advance(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Advanced to %s\n", s.Label())
	return nil
}

func runProgressRegress(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.Regress(cmd.Context(), id, regressReason)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved back to %s\n", s.Label())
	return nil
}
