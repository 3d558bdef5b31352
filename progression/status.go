// Package progression decides when a learner may move between stages.
package progression

import (
	"fmt"
	"math"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/stage"
)

const (
	CriterionBehaviorScore    = "behaviorScore"
	CriterionTradeCount       = "tradeCount"
	CriterionWinRate          = "winRate"
	CriterionCourses          = "coursesCompleted"
	CriterionPatternsMastered = "patternsMastered"
	CriterionStressPassed     = "stressScenariosPassed"
)

// Snapshot is the per-user data CheckStatus needs. Flags should cover at
// least the trailing score window; older flags are ignored.
type Snapshot struct {
	UserID               string
	Stage                stage.Stage
	Flags                []behavior.Flag
	ClosedTrades         int
	WinningTrades        int
	CompletedLessons     int
	MasteredPatterns     int
	PassedStressSessions int
}

// Criterion is one evaluated requirement. Boolean requirements report 1
// for true and 0 for false.
type Criterion struct {
	Required float64 `json:"required"`
	Current  float64 `json:"current"`
	Met      bool    `json:"met"`
}

type Status struct {
	CurrentStage      stage.Stage          `json:"current_stage"`
	CanAdvance        bool                 `json:"can_advance"`
	Criteria          map[string]Criterion `json:"criteria"`
	NextStage         *stage.Stage         `json:"next_stage"`
	BehaviorScore     int                  `json:"behavior_score"`
	RegressionRisk    bool                 `json:"regression_risk"`
	RegressionReasons []string             `json:"regression_reasons"`
}

// CheckStatus evaluates advancement and regression risk for snap at now.
// Regression risk is filled on every return, including the terminal stage
// and stages without advancement criteria, where CanAdvance is always false.
func CheckStatus(snap Snapshot, now time.Time) Status {
	score := behavior.WindowedScore(snap.Flags, now, behavior.ScoreWindow)
	st := Status{
		CurrentStage:      snap.Stage,
		Criteria:          map[string]Criterion{},
		BehaviorScore:     score,
		RegressionReasons: regressionReasons(snap, score, now),
	}
	st.RegressionRisk = len(st.RegressionReasons) > 0

	next, ok := snap.Stage.Next()
	if !ok {
		return st
	}
	st.NextStage = &next

	req, ok := stage.CriteriaFor(snap.Stage)
	if !ok {
		return st
	}

	st.CanAdvance = true
	check := func(name string, c Criterion) {
		st.Criteria[name] = c
		if !c.Met {
			st.CanAdvance = false
		}
	}

	check(CriterionBehaviorScore, Criterion{
		Required: float64(req.MinBehaviorScore),
		Current:  float64(score),
		Met:      score >= req.MinBehaviorScore,
	})

	if req.MinTrades > 0 {
		check(CriterionTradeCount, Criterion{
			Required: float64(req.MinTrades),
			Current:  float64(snap.ClosedTrades),
			Met:      snap.ClosedTrades >= req.MinTrades,
		})
	}

	if req.MinWinRate > 0 {
		var rate float64
		if snap.ClosedTrades > 0 {
			rate = float64(snap.WinningTrades) / float64(snap.ClosedTrades) * 100
		}
		check(CriterionWinRate, Criterion{
			Required: req.MinWinRate,
			Current:  math.Floor(rate*10+0.5) / 10,
			Met:      rate >= req.MinWinRate,
		})
	}

	if req.RequireCoursesCompleted {
		done := snap.CompletedLessons > 0
		check(CriterionCourses, Criterion{
			Required: 1,
			Current:  boolNum(done),
			Met:      done,
		})
	}

	if req.RequiredPatternsMastered > 0 {
		check(CriterionPatternsMastered, Criterion{
			Required: float64(req.RequiredPatternsMastered),
			Current:  float64(snap.MasteredPatterns),
			Met:      snap.MasteredPatterns >= req.RequiredPatternsMastered,
		})
	}

	if req.RequiredStressScenariosPassed > 0 {
		check(CriterionStressPassed, Criterion{
			Required: float64(req.RequiredStressScenariosPassed),
			Current:  float64(snap.PassedStressSessions),
			Met:      snap.PassedStressSessions >= req.RequiredStressScenariosPassed,
		})
	}

	return st
}

func regressionReasons(snap Snapshot, score int, now time.Time) []string {
	reasons := []string{}
	if stage.RegressionExempt(snap.Stage) {
		return reasons
	}

	floor := stage.RegressionFloor(snap.Stage)
	if score < floor {
		reasons = append(reasons, fmt.Sprintf("Behavior score (%d) is below minimum (%d) for this stage.", score, floor))
	}

	if n := behavior.CountCritical(snap.Flags, now.Add(-behavior.CriticalLookback)); n >= 3 {
		reasons = append(reasons, fmt.Sprintf("%d critical behavioral flags in the past week.", n))
	}
	return reasons
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
