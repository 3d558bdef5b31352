package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/forexgate/forexgate/internal/scheduler"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the maintenance scheduler",
	Long: `Run the periodic maintenance jobs until interrupted:

  daily_reset     - zero daily P&L and trade counts
  weekly_reset    - zero weekly P&L
  cooldown_sweep  - clear lapsed cooldowns
  plan_expiry     - expire approved plans nobody executed
  progress_sweep  - recompute every learner's progression status

Schedules come from the scheduler section of the config file.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List scheduled jobs or run one now",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs and their schedules",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run one job immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsRun,
}

func init() {
	rootCmd.AddCommand(daemonCmd, jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsRunCmd)
}

func newScheduler(a *app) (*scheduler.Scheduler, error) {
	return scheduler.New(a.cfg.Scheduler, a.store, a.svc, scheduler.WithLogger(a.log))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.Run(ctx)
	return nil
}

func runJobsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, j := range s.Jobs() {
		fmt.Fprintf(w, "%-16s %s\n", j.Name, j.Spec)
	}
	return nil
}

func runJobsRun(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}
	if err := s.RunJob(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ran %s\n", args[0])
	return nil
}
