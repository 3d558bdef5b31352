package cmd

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/forexgate/forexgate/internal/academy"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/risk"
	"github.com/forexgate/forexgate/stage"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [stages|pairs|cooldowns|patterns]",
	Short: "Print the static stage, pair, cooldown and pattern tables",
	Long: `Print the static policy tables. Use -o yaml or -o json for a full dump.

Examples:
  forexgate catalog stages
  forexgate catalog pairs -o yaml`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"stages", "pairs", "cooldowns", "patterns"},
	RunE:      runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

type stageInfo struct {
	Stage           stage.Stage     `json:"stage"`
	Label           string          `json:"label"`
	Description     string          `json:"description"`
	Criteria        *stage.Criteria `json:"criteria,omitempty"`
	Limits          *stage.Limits   `json:"limits,omitempty"`
	RegressionFloor int             `json:"regression_floor"`
	Routes          []string        `json:"allowed_routes"`
}

type catalog struct {
	Stages    []stageInfo         `json:"stages,omitempty"`
	Pairs     []market.PairInfo   `json:"pairs,omitempty"`
	Cooldowns []risk.CooldownRule `json:"cooldowns,omitempty"`
	Patterns  []academy.Pattern   `json:"patterns,omitempty"`
}

func buildCatalog(section string) (catalog, error) {
	var c catalog
	all := section == ""
	switch section {
	case "", "stages", "pairs", "cooldowns", "patterns":
	default:
		return c, fmt.Errorf("unknown catalog section %q", section)
	}

	if all || section == "stages" {
		for _, s := range stage.Order {
			info := stageInfo{
				Stage:           s,
				Label:           s.Label(),
				Description:     s.Description(),
				RegressionFloor: stage.RegressionFloor(s),
				Routes:          stage.AllowedRoutes(s),
			}
			if cr, ok := stage.CriteriaFor(s); ok {
				info.Criteria = &cr
			}
			if l, ok := stage.LimitsFor(s); ok {
				info.Limits = &l
			}
			c.Stages = append(c.Stages, info)
		}
	}
	if all || section == "pairs" {
		for _, p := range market.Pairs {
			c.Pairs = append(c.Pairs, p)
		}
		slices.SortFunc(c.Pairs, func(a, b market.PairInfo) int {
			return cmp.Or(
				cmp.Compare(slices.Index(categoryOrder, a.Category), slices.Index(categoryOrder, b.Category)),
				cmp.Compare(a.Pair, b.Pair),
			)
		})
	}
	if all || section == "cooldowns" {
		for _, r := range risk.CooldownRules {
			c.Cooldowns = append(c.Cooldowns, r)
		}
		slices.SortFunc(c.Cooldowns, func(a, b risk.CooldownRule) int {
			return cmp.Compare(a.Name, b.Name)
		})
	}
	if all || section == "patterns" {
		c.Patterns = academy.Patterns()
	}
	return c, nil
}

var categoryOrder = []market.Category{market.Major, market.Minor, market.Exotic}

func runCatalog(cmd *cobra.Command, args []string) error {
	var section string
	if len(args) == 1 {
		section = args[0]
	}
	c, err := buildCatalog(section)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), c, func(w io.Writer) {
		for _, s := range c.Stages {
			lots := "-"
			if s.Limits != nil {
				lots = fmt.Sprintf("%.2f", s.Limits.MaxLotSize)
			}
			fmt.Fprintf(w, "%-32s floor %-3d max lots %-6s %s\n", s.Label, s.RegressionFloor, lots, s.Description)
		}
		for _, p := range c.Pairs {
			fmt.Fprintf(w, "%-8s %-6s pip 1e-%d  spread %.1f\n", p.Pair, p.Category, p.PipDecimalPlace, p.AverageSpreadPips)
		}
		for _, r := range c.Cooldowns {
			fmt.Fprintf(w, "%-22s %4d min  %s\n", r.Name, r.DurationMinutes, r.Message)
		}
		for _, p := range c.Patterns {
			fmt.Fprintf(w, "%-14s %-18s %s\n", p.ID, p.Title, p.Difficulty)
		}
	})
}
