package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"walletwise/internal/client"
)

type settings struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

func newRootCmd(defaults settings, out io.Writer) *cobra.Command {
	s := defaults

	root := &cobra.Command{
		Use:          "catchup",
		Short:        "Operate the walletwise recurring and budget pipeline",
		Long:         `catchup calls the pipeline endpoints of a walletwise API to materialize due recurring transactions or to rebuild budget spending.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&s.APIURL, "api-url", defaults.APIURL, "Base URL of the walletwise API")
	root.PersistentFlags().StringVar(&s.APIKey, "api-key", defaults.APIKey, "Pipeline API key (defaults to PIPELINE_API_KEY)")
	root.PersistentFlags().DurationVar(&s.Timeout, "timeout", defaults.Timeout, "Request timeout")

	newClient := func() (*client.PipelineClient, error) {
		if s.APIKey == "" {
			return nil, errors.New("pipeline API key is required (--api-key or PIPELINE_API_KEY)")
		}
		return client.NewPipelineClient(s.APIURL, s.APIKey, &http.Client{Timeout: s.Timeout}), nil
	}

	root.AddCommand(newRunCmd(newClient), newRecomputeCmd(newClient))
	return root
}

func newRunCmd(newClient func() (*client.PipelineClient, error)) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize every recurring rule due on or before a date",
		Long:  `Materialize every recurring rule due on or before --date. Without --date the server uses today in its business timezone.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var day time.Time
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
				day = parsed
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.RunRecurring(cmd.Context(), day)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if len(result.Failures) > 0 {
				return fmt.Errorf("%d rule(s) failed to catch up", len(result.Failures))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Business date to catch up to (YYYY-MM-DD)")
	return cmd
}

func newRecomputeCmd(newClient func() (*client.PipelineClient, error)) *cobra.Command {
	var (
		walletID string
		month    int
		year     int
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild budget spending for one wallet month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid --month %d: must be between 1 and 12", month)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.RecomputeBudgets(cmd.Context(), walletID, month, year)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	now := time.Now()
	cmd.Flags().StringVar(&walletID, "wallet", "", "Wallet ID")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Month (1-12)")
	cmd.Flags().IntVar(&year, "year", now.Year(), "Year")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// executeContext runs root with args under ctx.
func executeContext(ctx context.Context, root *cobra.Command, args ...string) error {
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
