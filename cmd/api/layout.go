package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyTurnyet/switch-this-sub002/internal/api"
	"github.com/MyTurnyet/switch-this-sub002/internal/fixture"
	"github.com/MyTurnyet/switch-this-sub002/internal/integrations"
	"github.com/MyTurnyet/switch-this-sub002/internal/integrations/csvroster"
	"github.com/MyTurnyet/switch-this-sub002/internal/layout"
	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

// parseAssignments reads car=industry/track pairs.
func parseAssignments(pairs []string) (map[model.ID]model.TrackRef, error) {
	out := map[model.ID]model.TrackRef{}
	for _, p := range pairs {
		car, dest, ok := strings.Cut(p, "=")
		ind, track, ok2 := strings.Cut(dest, "/")
		if !ok || !ok2 || car == "" || ind == "" || track == "" {
			return nil, fmt.Errorf("invalid assignment %q, want car=industry/track", p)
		}
		out[model.ID(car)] = model.TrackRef{IndustryID: model.ID(ind), TrackID: model.ID(track)}
	}
	return out, nil
}

func newPlanCommand() *cobra.Command {
	var (
		layoutPath string
		routeID    string
		name       string
		assign     []string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a switchlist offline and print it",
		Long:  `Plans the route against a layout file without touching any store and prints the crew view.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := fixture.Load(layoutPath)
			if err != nil {
				return err
			}
			var route model.TrainRoute
			for _, r := range l.TrainRoutes {
				if r.ID == model.ID(routeID) {
					route = r
				}
			}
			if route.ID == "" {
				return fmt.Errorf("train route %q not found in %s", routeID, layoutPath)
			}
			assignments, err := parseAssignments(assign)
			if err != nil {
				return err
			}
			var resolver planner.DestinationResolver
			if len(assignments) > 0 {
				resolver = planner.FirstResolved(planner.StaticDestinations(assignments), planner.AssignedDestination)
			}
			plan, err := planner.New(resolver, log.Named("planner")).Plan(route, l.Industries, l.RollingStock)
			if err != nil {
				return err
			}
			if name == "" {
				name = route.Name
			}
			sl := switchlist.New(name, route, plan, time.Now().UTC())
			return switchlist.Print(cmd.OutOrStdout(), sl, route,
				switchlist.NewDirectory(l.Locations, l.Industries, l.RollingStock))
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Layout YAML file")
	cmd.Flags().StringVar(&routeID, "route", "", "Train route id")
	cmd.Flags().StringVar(&name, "name", "", "Switchlist name (default: route name)")
	cmd.Flags().StringArrayVar(&assign, "assign", nil, "Override a destination: car=industry/track (repeatable)")
	_ = cmd.MarkFlagRequired("layout")
	_ = cmd.MarkFlagRequired("route")
	return cmd
}

func newCheckCommand() *cobra.Command {
	var layoutPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report placement invariant violations",
		Long:  `Checks a layout file, or the configured store when --layout is omitted. Exits non-zero on blocking violations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				industries []model.Industry
				cars       []model.RollingStock
			)
			if layoutPath != "" {
				l, err := fixture.Load(layoutPath)
				if err != nil {
					return err
				}
				industries, cars = l.Industries, l.RollingStock
			} else {
				st, err := api.OpenStore(cmd.Context(), cfg.Database)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
				if industries, err = st.LoadIndustries(cmd.Context()); err != nil {
					return err
				}
				if cars, err = st.LoadRollingStock(cmd.Context()); err != nil {
					return err
				}
			}

			violations := layout.NewState(industries, cars).Violations()
			out := cmd.OutOrStdout()
			if len(violations) == 0 {
				fmt.Fprintln(out, "✓ No violations")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEVERITY\tRULE\tMESSAGE")
			blocking := 0
			for _, v := range violations {
				if v.Severity == layout.SeverityBlock {
					blocking++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Severity, v.Rule, v.Message)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if blocking > 0 {
				return fmt.Errorf("%d blocking violation(s)", blocking)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Layout YAML file")
	return cmd
}

func newImportCommand() *cobra.Command {
	var layoutPath, rosterPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a layout file and/or a car roster into the configured store",
		Long: `Imports a layout YAML file, then merges a CSV car roster over the stored
rolling stock. Either flag may be given alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if layoutPath == "" && rosterPath == "" {
				return fmt.Errorf("one of --layout or --roster is required")
			}
			ctx := cmd.Context()
			st, err := api.OpenStore(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if layoutPath != "" {
				l, err := fixture.Load(layoutPath)
				if err != nil {
					return err
				}
				if err := fixture.Import(ctx, st, l); err != nil {
					return err
				}
				log.Infow("layout imported", "file", layoutPath, "database", cfg.Database.Type,
					"locations", len(l.Locations), "industries", len(l.Industries),
					"rollingStock", len(l.RollingStock), "trainRoutes", len(l.TrainRoutes))
			}
			if rosterPath != "" {
				return importRoster(ctx, st, csvroster.Adapter{Path: rosterPath})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Layout YAML file")
	cmd.Flags().StringVar(&rosterPath, "roster", "", "Car roster CSV file")
	return cmd
}

func importRoster(ctx context.Context, st store.Store, src integrations.RosterSource) error {
	roster, err := src.FetchRoster(ctx)
	if err != nil {
		return err
	}
	existing, err := st.LoadRollingStock(ctx)
	if err != nil {
		return err
	}
	for _, c := range integrations.MergeRoster(existing, roster) {
		if _, err := st.SaveRollingStock(ctx, c); err != nil {
			return fmt.Errorf("save car %s: %w", c.ID, err)
		}
	}
	log.Infow("roster imported", "source", src.Name(), "cars", len(roster))
	return nil
}
