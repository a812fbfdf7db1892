package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/yukti/internal/alerts"
	"github.com/AngelCh415/yukti/internal/app"
	"github.com/AngelCh415/yukti/internal/config"
	"github.com/AngelCh415/yukti/internal/dashboard"
	"github.com/AngelCh415/yukti/internal/store"
)

// scenarioFlags are the selectors shared by the analysis commands.
type scenarioFlags struct {
	start, end, city, product, sku, timeSlot, adType string
}

func (f *scenarioFlags) bind(cmd *cobra.Command, dates bool) {
	if dates {
		cmd.Flags().StringVar(&f.start, "start", "", "first day (YYYY-MM-DD), default: trailing window")
		cmd.Flags().StringVar(&f.end, "end", "", "last day (YYYY-MM-DD)")
		cmd.Flags().StringVar(&f.timeSlot, "time-slot", "", "time slot")
	}
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.product, "product", "", "product")
	cmd.Flags().StringVar(&f.sku, "sku", "", "SKU")
}

func (f *scenarioFlags) values() url.Values {
	v := url.Values{}
	for k, s := range map[string]string{
		"start": f.start, "end": f.end, "city": f.city, "product": f.product,
		"sku": f.sku, "time_slot": f.timeSlot, "ad_type": f.adType,
	} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp loads config, builds the app with logs on stderr, and releases it after fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, app.NewLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func rootCmd(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "yuktictl",
		Short:         "Campaign diagnostics, forecasting and issue queue from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(diagnoseCmd(ctx), forecastCmd(ctx), allocateCmd(ctx), issuesCmd(ctx))
	return root
}

func diagnoseCmd(ctx context.Context) *cobra.Command {
	var sf scenarioFlags
	var cards string
	var narrate bool
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Summary cards, city performance and the diagnostic insight for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := sf.values()
			v.Set("cards", cards)
			v.Set("narrate", strconv.FormatBool(narrate))
			q, err := dashboard.ParseDiagnostics(v)
			if err != nil {
				return err
			}
			return withApp(ctx, func(a *app.App) error {
				d, err := a.Dashboard.Diagnostics(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), d)
			})
		},
	}
	sf.bind(cmd, true)
	cmd.Flags().StringVar(&cards, "cards", "roas,conversions,cpc", "comma separated cards")
	cmd.Flags().BoolVar(&narrate, "narrate", false, "add an LLM executive summary when configured")
	return cmd
}

func forecastCmd(ctx context.Context) *cobra.Command {
	var sf scenarioFlags
	var metric string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project one metric for a city/product/SKU/ad type scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := sf.values()
			v.Set("metric", metric)
			q, err := dashboard.ParseForecast(v)
			if err != nil {
				return err
			}
			return withApp(ctx, func(a *app.App) error {
				f, err := a.Dashboard.Forecast(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), f)
			})
		},
	}
	sf.bind(cmd, false)
	cmd.Flags().StringVar(&sf.adType, "ad-type", "", "ad type")
	cmd.Flags().StringVar(&metric, "metric", "Actual_ROAS", "metric to forecast")
	return cmd
}

func allocateCmd(ctx context.Context) *cobra.Command {
	var sf scenarioFlags
	var goal string
	var budget float64
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Split a budget across ad types by forecast performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := sf.values()
			v.Set("goal", goal)
			v.Set("budget", strconv.FormatFloat(budget, 'f', -1, 64))
			q, err := dashboard.ParsePlan(v)
			if err != nil {
				return err
			}
			return withApp(ctx, func(a *app.App) error {
				p, err := a.Dashboard.Plan(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	sf.bind(cmd, false)
	cmd.Flags().StringVar(&goal, "goal", "Maximize overall ROAS", "optimisation goal")
	cmd.Flags().Float64Var(&budget, "budget", dashboard.DefaultBudget, "total budget")
	return cmd
}

func issuesCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{Use: "issues", Short: "Inspect and resolve the live issue queue"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the pending window, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(a *app.App) error {
				l, err := a.Alerts.ListPending(ctx, store.NewSession("cli"))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dashboard.NewAlertsView(&l, false))
			})
		},
	}

	var auto bool
	resolve := &cobra.Command{
		Use:   "resolve <timestamp>",
		Short: "Mark one pending issue Resolved; --auto also sends the workflow notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(a *app.App) error {
				issue, err := a.Alerts.FindPending(ctx, args[0])
				if err != nil {
					return err
				}
				out, err := a.Alerts.Resolve(ctx, store.NewSession("cli"), issue, auto)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	resolve.Flags().BoolVar(&auto, "auto", false, "notify the workflow webhook before resolving")

	drain := &cobra.Command{
		Use:   "drain",
		Short: "Auto-resolve pending issues one at a time until the queue is clear",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(a *app.App) error {
				sess := store.NewSession("cli")
				sess.SetAuto(true)
				for {
					res, err := a.Alerts.AutoResolveNext(ctx, sess, func(s alerts.Step) {
						fmt.Fprintln(cmd.OutOrStdout(), s.Message)
					})
					if err != nil {
						return err
					}
					if res.Empty {
						return nil
					}
				}
			})
		},
	}

	cmd.AddCommand(list, resolve, drain)
	return cmd
}
