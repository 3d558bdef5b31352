// Package stage holds the ordered learning stages and the static policy
// tables attached to them.
package stage

import (
	"fmt"
	"strings"
	"time"
)

type Stage string

const (
	Onboarding   Stage = "onboarding"
	Observer     Stage = "stage_1_observer"
	Student      Stage = "stage_2_student"
	SimBasic     Stage = "stage_3_sim_basic"
	SimRealistic Stage = "stage_4_sim_realistic"
	SimStress    Stage = "stage_5_sim_stress"
	LiveMicro    Stage = "stage_6_live_micro"
	LiveMini     Stage = "stage_7_live_mini"
	LiveStandard Stage = "stage_8_live_standard"
)

var Order = []Stage{
	Onboarding,
	Observer,
	Student,
	SimBasic,
	SimRealistic,
	SimStress,
	LiveMicro,
	LiveMini,
	LiveStandard,
}

var labels = map[Stage]string{
	Onboarding:   "Onboarding",
	Observer:     "Stage 1: Observer",
	Student:      "Stage 2: Student",
	SimBasic:     "Stage 3: Simulation (Basic)",
	SimRealistic: "Stage 4: Simulation (Realistic)",
	SimStress:    "Stage 5: Stress Testing",
	LiveMicro:    "Stage 6: Live (Micro)",
	LiveMini:     "Stage 7: Live (Mini)",
	LiveStandard: "Stage 8: Live (Standard)",
}

var descriptions = map[Stage]string{
	Onboarding:   "Complete your profile and baseline assessment.",
	Observer:     "Learn how markets work. No trading yet - observe and study.",
	Student:      "Study price patterns and develop your first setup.",
	SimBasic:     "Practice execution in a controlled demo environment.",
	SimRealistic: "Trade with realistic spreads, slippage, and volatility.",
	SimStress:    "Prove you can handle adverse conditions and losing streaks.",
	LiveMicro:    "Real money, micro lots. Smallest possible live exposure.",
	LiveMini:     "Increased position sizes with proven discipline.",
	LiveStandard: "Full access. You have demonstrated professional-grade discipline.",
}

// Index returns the position of s in Order, or -1.
func (s Stage) Index() int {
	for i, st := range Order {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool { return s.Index() >= 0 }

func (s Stage) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

func (s Stage) Description() string { return descriptions[s] }

// Next returns the following stage. The last stage has none.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Order) {
		return "", false
	}
	return Order[i+1], true
}

// Previous returns the preceding stage. Onboarding has none.
func (s Stage) Previous() (Stage, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return Order[i-1], true
}

// AtLeast reports whether current is at or beyond required.
func AtLeast(current, required Stage) bool {
	c, r := current.Index(), required.Index()
	return c >= 0 && r >= 0 && c >= r
}

// Parse accepts the full stage name or a bare stage number ("3").
func Parse(s string) (Stage, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if st := Stage(s); st.Valid() {
		return st, nil
	}
	for _, st := range Order[1:] {
		if strings.HasPrefix(string(st), "stage_"+s+"_") {
			return st, nil
		}
	}
	if s == "0" {
		return Onboarding, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// HistoryEntry records one stay in a stage. ExitedAt is nil for the
// currently open entry.
type HistoryEntry struct {
	Stage      Stage      `json:"stage"`
	EnteredAt  time.Time  `json:"entered_at"`
	ExitedAt   *time.Time `json:"exited_at,omitempty"`
	ExitReason string     `json:"exit_reason,omitempty"`
}

// Transition is a committed move between adjacent stages.
type Transition struct {
	UserID string
	From   Stage
	To     Stage
	Reason string
	At     time.Time
}
