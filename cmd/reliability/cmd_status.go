package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/metrics"
)

func newStatusCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status [metrics-url]",
		Short: "Show the components exported by a running instance",
		Long: `Status scrapes the Prometheus endpoint of a running run, follow or monitor
command and prints the latest state of every component. The URL defaults to
the configured metrics address.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			switch {
			case len(args) == 1:
				url = args[0]
			case a.cfg.Metrics.Addr != "":
				url = "http://" + hostPort(a.cfg.Metrics.Addr) + "/metrics"
			default:
				return errors.New("need a metrics url or metrics.addr in the configuration")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			cs, err := metrics.Scrape(ctx, &http.Client{Timeout: timeout}, url)
			if err != nil {
				return err
			}
			return printComponents(cmd.OutOrStdout(), cs, a.jsonOut)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "scrape timeout")
	return cmd
}

// hostPort turns a listen address such as ":9464" into a dialable one.
func hostPort(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
