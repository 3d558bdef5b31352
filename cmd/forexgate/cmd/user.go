package cmd

import (
	"fmt"
	"io"

	"github.com/forexgate/forexgate/internal/academy"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Register learners and complete onboarding",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register <email> <name>",
	Short: "Register a new learner",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserRegister,
}

var userAssessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Record the onboarding assessment",
	Args:  cobra.NoArgs,
	RunE:  runUserAssess,
}

var userOnboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Acknowledge the commitment and enter stage 1",
	Args:  cobra.NoArgs,
	RunE:  runUserOnboard,
}

var userShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a learner",
	Args:  cobra.NoArgs,
	RunE:  runUserShow,
}

var (
	registerBalance float64
	assess          academy.AssessmentInput
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userRegisterCmd, userAssessCmd, userOnboardCmd, userShowCmd)

	userRegisterCmd.Flags().Float64Var(&registerBalance, "balance", 0, "starting balance (default from config)")
	userAssessCmd.Flags().StringVar(&assess.ExperienceLevel, "experience", "", "none|beginner|intermediate|advanced")
	userAssessCmd.Flags().StringVar(&assess.RiskTolerance, "risk-tolerance", "", "conservative|moderate|aggressive")
	userAssessCmd.Flags().StringSliceVar(&assess.Motivations, "motivation", nil, "why you trade (repeatable)")
}

func runUserRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.svc.Register(cmd.Context(), academy.RegisterInput{Email: args[0], Name: args[1], Balance: registerBalance})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), u, func(w io.Writer) {
		fmt.Fprintln(w, u.ID)
	})
}

func runUserAssess(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.CompleteAssessment(cmd.Context(), id, assess); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Assessment recorded.")
	return nil
}

func runUserOnboard(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.CompleteOnboarding(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Welcome to %s\n", s.Label())
	return nil
}

func runUserShow(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.svc.User(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), u, func(w io.Writer) {
		fmt.Fprintf(w, "%s <%s>\n", u.Name, u.Email)
		fmt.Fprintf(w, "  Stage:          %s\n", u.Stage.Label())
		fmt.Fprintf(w, "  Behavior score: %d\n", u.BehaviorScore)
		fmt.Fprintf(w, "  Onboarded:      %t\n", u.Onboarding.Completed)
		for _, h := range u.History {
			exit := "current"
			if h.ExitedAt != nil {
				exit = fmt.Sprintf("%s (%s)", h.ExitedAt.Format("2006-01-02 15:04"), h.ExitReason)
			}
			fmt.Fprintf(w, "  - %-32s %s -> %s\n", h.Stage.Label(), h.EnteredAt.Format("2006-01-02 15:04"), exit)
		}
	})
}
