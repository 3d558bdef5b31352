package academy

import (
	"context"
	"fmt"

	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/stage"
)

type RegisterInput struct {
	Email   string  `json:"email" validate:"required,email"`
	Name    string  `json:"name" validate:"required,max=100"`
	Balance float64 `json:"balance" validate:"gte=0"`
}

// Register creates a user at onboarding with a fresh risk profile. A zero
// balance takes the service default.
func (s *Service) Register(ctx context.Context, in RegisterInput) (journal.User, error) {
	if err := s.check(in); err != nil {
		return journal.User{}, err
	}
	balance := in.Balance
	if balance == 0 {
		balance = s.defaultBalance
	}
	u := journal.User{
		Email:         in.Email,
		Name:          in.Name,
		Role:          journal.RoleStudent,
		Stage:         stage.Onboarding,
		BehaviorScore: 100,
		CreatedAt:     s.clock(),
	}
	if err := s.store.CreateUser(ctx, &u, journal.DefaultRiskProfile("", balance)); err != nil {
		return journal.User{}, fmt.Errorf("register %s: %w", in.Email, err)
	}
	s.log.Info().Str("user_id", u.ID).Float64("balance", balance).Msg("user registered")
	return u, nil
}

func (s *Service) User(ctx context.Context, userID string) (journal.User, error) {
	return s.store.GetUser(ctx, userID)
}

type AssessmentInput struct {
	ExperienceLevel string   `json:"experience_level" validate:"required,oneof=none beginner intermediate advanced"`
	RiskTolerance   string   `json:"risk_tolerance" validate:"required,oneof=conservative moderate aggressive"`
	Motivations     []string `json:"motivations" validate:"max=10,dive,required"`
}

// CompleteAssessment stores the baseline questionnaire. It is only
// accepted while the user is still onboarding.
func (s *Service) CompleteAssessment(ctx context.Context, userID string, in AssessmentInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.Stage != stage.Onboarding {
		return fmt.Errorf("assessment: %w", ErrStageLocked)
	}
	o := u.Onboarding
	o.ExperienceLevel = in.ExperienceLevel
	o.RiskTolerance = in.RiskTolerance
	o.Motivations = in.Motivations
	return s.store.SaveOnboarding(ctx, userID, o)
}

// CompleteOnboarding acknowledges the commitment and moves the user into
// stage 1.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string) (stage.Stage, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	next, err := s.engine.CompleteOnboarding(ctx, userID)
	if err != nil {
		return "", err
	}
	now := s.clock()
	o := u.Onboarding
	o.Completed = true
	o.CompletedAt = &now
	o.CommitmentAcknowledged = true
	if err := s.store.SaveOnboarding(ctx, userID, o); err != nil {
		return "", fmt.Errorf("save onboarding: %w", err)
	}
	return next, nil
}
