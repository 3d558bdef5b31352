package stage

import (
	"testing"

	"github.com/forexgate/forexgate/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderAndNeighbours(t *testing.T) {
	t.Parallel()

	require.Len(t, Order, 9)
	assert.Equal(t, 0, Onboarding.Index())
	assert.Equal(t, 8, LiveStandard.Index())
	assert.Equal(t, -1, Stage("stage_9_whale").Index())

	next, ok := SimBasic.Next()
	assert.True(t, ok)
	assert.Equal(t, SimRealistic, next)

	_, ok = LiveStandard.Next()
	assert.False(t, ok)

	prev, ok := Observer.Previous()
	assert.True(t, ok)
	assert.Equal(t, Onboarding, prev)

	_, ok = Onboarding.Previous()
	assert.False(t, ok)
}

func TestAtLeast(t *testing.T) {
	t.Parallel()

	assert.True(t, AtLeast(LiveMicro, SimBasic))
	assert.True(t, AtLeast(SimBasic, SimBasic))
	assert.False(t, AtLeast(Student, SimBasic))
	assert.False(t, AtLeast(Stage("bogus"), Onboarding))
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Stage
	}{
		{"stage_3_sim_basic", SimBasic},
		{"3", SimBasic},
		{" 8 ", LiveStandard},
		{"0", Onboarding},
		{"ONBOARDING", Onboarding},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := Parse("9")
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Stage 3: Simulation (Basic)", SimBasic.Label())
	assert.Equal(t, "whatever", Stage("whatever").Label())
	for _, s := range Order {
		assert.NotEmpty(t, s.Description(), s)
	}
}

func TestCriteriaTable(t *testing.T) {
	t.Parallel()

	for _, s := range []Stage{Onboarding, LiveMini, LiveStandard} {
		_, ok := CriteriaFor(s)
		assert.False(t, ok, s)
	}

	c, ok := CriteriaFor(SimBasic)
	require.True(t, ok)
	assert.Equal(t, 75, c.MinBehaviorScore)
	assert.Equal(t, 50, c.MinTrades)
	assert.Equal(t, 40.0, c.MinWinRate)

	c, ok = CriteriaFor(SimStress)
	require.True(t, ok)
	assert.Equal(t, 3, c.RequiredStressScenariosPassed)
}

func TestLimitsTable(t *testing.T) {
	t.Parallel()

	for _, s := range []Stage{Onboarding, Observer, Student} {
		_, ok := LimitsFor(s)
		assert.False(t, ok, s)
	}

	l, ok := LimitsFor(LiveMicro)
	require.True(t, ok)
	assert.Equal(t, 0.5, l.MaxRiskPerTradePercent)
	assert.Equal(t, 0.1, l.MaxLotSize)
	assert.Equal(t, 2.0, l.MinRiskRewardRatio)
	assert.True(t, l.AllowsCategory(market.Major))
	assert.False(t, l.AllowsCategory(market.Minor))
	assert.False(t, l.AllowsSession(market.Asian))

	l, ok = LimitsFor(LiveStandard)
	require.True(t, ok)
	assert.True(t, l.AllowsCategory(market.Exotic))
	assert.Equal(t, 8, l.MaxDailyTrades)
}

func TestRegressionFloors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 65, RegressionFloor(SimBasic))
	assert.Equal(t, 85, RegressionFloor(LiveStandard))
	assert.Equal(t, DefaultRegressionFloor, RegressionFloor(Student))

	assert.True(t, RegressionExempt(Onboarding))
	assert.True(t, RegressionExempt(Observer))
	assert.False(t, RegressionExempt(Student))
}

func TestCanAccess(t *testing.T) {
	t.Parallel()

	assert.True(t, CanAccess(Onboarding, "/welcome"))
	assert.False(t, CanAccess(Onboarding, "/dashboard"))
	assert.True(t, CanAccess(SimBasic, "/simulate/demo/session-1"))
	assert.False(t, CanAccess(SimBasic, "/simulate/stress"))
	assert.True(t, CanAccess(LiveMicro, "/simulate/stress"))
	assert.False(t, CanAccess(Observer, "/learnmore"), "prefix must end on a path boundary")
	assert.False(t, CanAccess(Stage("nope"), "/dashboard"))

	routes := AllowedRoutes(Observer)
	routes[0] = "/hacked"
	assert.True(t, CanAccess(Observer, "/dashboard"))
}
