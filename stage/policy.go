package stage

import (
	"slices"
	"strings"

	"github.com/forexgate/forexgate/market"
)

// Criteria are the thresholds for leaving a stage. Zero values mean the
// criterion is not required. MinAvgRR, MinPlanAdherence,
// MinRiskComplianceScore and MinTimeInStageDays are informational only.
type Criteria struct {
	MinBehaviorScore              int     `json:"min_behavior_score"`
	MinRiskComplianceScore        int     `json:"min_risk_compliance_score,omitempty"`
	MinTrades                     int     `json:"min_trades,omitempty"`
	MinWinRate                    float64 `json:"min_win_rate,omitempty"`
	MinAvgRR                      float64 `json:"min_avg_rr,omitempty"`
	MinPlanAdherence              float64 `json:"min_plan_adherence,omitempty"`
	MinTimeInStageDays            int     `json:"min_time_in_stage_days,omitempty"`
	RequireCoursesCompleted       bool    `json:"require_courses_completed,omitempty"`
	RequiredPatternsMastered      int     `json:"required_patterns_mastered,omitempty"`
	RequiredStressScenariosPassed int     `json:"required_stress_scenarios_passed,omitempty"`
}

// No entries for onboarding, stage 7 or stage 8: those stages are not
// advanced through CheckStatus.
var criteria = map[Stage]Criteria{
	Observer: {
		MinBehaviorScore:        0,
		RequireCoursesCompleted: true,
	},
	Student: {
		MinBehaviorScore:         70,
		RequireCoursesCompleted:  true,
		RequiredPatternsMastered: 1,
	},
	SimBasic: {
		MinBehaviorScore: 75,
		MinTrades:        50,
		MinWinRate:       40,
		MinAvgRR:         1.5,
		MinPlanAdherence: 80,
	},
	SimRealistic: {
		MinBehaviorScore: 80,
		MinTrades:        50,
		MinWinRate:       40,
		MinAvgRR:         1.5,
		MinPlanAdherence: 80,
	},
	SimStress: {
		MinBehaviorScore:              85,
		RequiredStressScenariosPassed: 3,
	},
	LiveMicro: {
		MinBehaviorScore:       85,
		MinRiskComplianceScore: 90,
		MinTrades:              100,
		MinTimeInStageDays:     90,
	},
}

func CriteriaFor(s Stage) (Criteria, bool) {
	c, ok := criteria[s]
	return c, ok
}

// Limits are the per-trade and per-period risk caps enforced while a user
// is in a stage.
type Limits struct {
	MaxRiskPerTradePercent   float64           `json:"max_risk_per_trade_percent" yaml:"max_risk_per_trade_percent"`
	MaxDailyDrawdownPercent  float64           `json:"max_daily_drawdown_percent" yaml:"max_daily_drawdown_percent"`
	MaxWeeklyDrawdownPercent float64           `json:"max_weekly_drawdown_percent" yaml:"max_weekly_drawdown_percent"`
	MaxOpenPositions         int               `json:"max_open_positions" yaml:"max_open_positions"`
	MaxDailyTrades           int               `json:"max_daily_trades" yaml:"max_daily_trades"`
	MinRiskRewardRatio       float64           `json:"min_risk_reward_ratio" yaml:"min_risk_reward_ratio"`
	AllowedPairCategories    []market.Category `json:"allowed_pair_categories" yaml:"allowed_pair_categories"`
	AllowedSessions          []market.Session  `json:"allowed_sessions" yaml:"allowed_sessions"`
	MaxLotSize               float64           `json:"max_lot_size" yaml:"max_lot_size"`
}

func (l Limits) AllowsCategory(c market.Category) bool {
	return slices.Contains(l.AllowedPairCategories, c)
}

func (l Limits) AllowsSession(s market.Session) bool {
	return slices.Contains(l.AllowedSessions, s)
}

var (
	allSessions  = []market.Session{market.Asian, market.London, market.NewYork}
	mainSessions = []market.Session{market.London, market.NewYork}

	simLimits = Limits{
		MaxRiskPerTradePercent:   1,
		MaxDailyDrawdownPercent:  3,
		MaxWeeklyDrawdownPercent: 5,
		MaxOpenPositions:         2,
		MaxDailyTrades:           5,
		MinRiskRewardRatio:       1.5,
		AllowedPairCategories:    []market.Category{market.Major, market.Minor},
		AllowedSessions:          allSessions,
		MaxLotSize:               1.0,
	}
)

var limits = map[Stage]Limits{
	SimBasic: {
		MaxRiskPerTradePercent:   1,
		MaxDailyDrawdownPercent:  3,
		MaxWeeklyDrawdownPercent: 5,
		MaxOpenPositions:         1,
		MaxDailyTrades:           3,
		MinRiskRewardRatio:       1.5,
		AllowedPairCategories:    []market.Category{market.Major},
		AllowedSessions:          mainSessions,
		MaxLotSize:               1.0,
	},
	SimRealistic: simLimits,
	SimStress:    simLimits,
	LiveMicro: {
		MaxRiskPerTradePercent:   0.5,
		MaxDailyDrawdownPercent:  2,
		MaxWeeklyDrawdownPercent: 3,
		MaxOpenPositions:         1,
		MaxDailyTrades:           3,
		MinRiskRewardRatio:       2.0,
		AllowedPairCategories:    []market.Category{market.Major},
		AllowedSessions:          mainSessions,
		MaxLotSize:               0.1,
	},
	LiveMini: simLimits,
	LiveStandard: {
		MaxRiskPerTradePercent:   1,
		MaxDailyDrawdownPercent:  3,
		MaxWeeklyDrawdownPercent: 5,
		MaxOpenPositions:         3,
		MaxDailyTrades:           8,
		MinRiskRewardRatio:       1.5,
		AllowedPairCategories:    []market.Category{market.Major, market.Minor, market.Exotic},
		AllowedSessions:          allSessions,
		MaxLotSize:               10.0,
	},
}

// LimitsFor returns the risk caps for s. Stages below stage 3 cannot trade.
func LimitsFor(s Stage) (Limits, bool) {
	l, ok := limits[s]
	return l, ok
}

const DefaultRegressionFloor = 60

var regressionFloors = map[Stage]int{
	SimBasic:     65,
	SimRealistic: 70,
	SimStress:    75,
	LiveMicro:    80,
	LiveMini:     82,
	LiveStandard: 85,
}

// RegressionFloor is the behavior score below which a user in s is at risk
// of being moved back a stage.
func RegressionFloor(s Stage) int {
	if f, ok := regressionFloors[s]; ok {
		return f
	}
	return DefaultRegressionFloor
}

// RegressionExempt reports whether s is onboarding or stage 1.
func RegressionExempt(s Stage) bool {
	return s.Index() <= 1
}

var routes = map[Stage][]string{
	Onboarding: {"/welcome", "/assessment", "/commitment"},
	Observer:   {"/dashboard", "/learn", "/profile", "/settings"},
	Student:    {"/dashboard", "/learn", "/patterns", "/profile", "/settings"},
	SimBasic: {
		"/dashboard", "/learn", "/patterns", "/simulate/demo",
		"/journal", "/analytics", "/profile", "/settings",
	},
	SimRealistic: {
		"/dashboard", "/learn", "/patterns", "/simulate/demo",
		"/simulate/realistic", "/journal", "/analytics", "/profile", "/settings",
	},
	SimStress: {
		"/dashboard", "/learn", "/patterns", "/simulate/demo",
		"/simulate/realistic", "/simulate/replay", "/simulate/stress",
		"/journal", "/analytics", "/profile", "/settings",
	},
	LiveMicro:    liveRoutes,
	LiveMini:     liveRoutes,
	LiveStandard: liveRoutes,
}

var liveRoutes = []string{
	"/dashboard", "/learn", "/patterns", "/simulate",
	"/trade", "/journal", "/analytics", "/profile", "/settings",
}

func AllowedRoutes(s Stage) []string {
	return slices.Clone(routes[s])
}

// CanAccess matches path against the route prefixes allowed in s.
func CanAccess(s Stage, path string) bool {
	for _, p := range routes[s] {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
