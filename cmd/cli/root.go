package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siddarth2230/qrlinks/internal/app"
	"github.com/Siddarth2230/qrlinks/internal/config"
	"github.com/Siddarth2230/qrlinks/internal/models"
	"github.com/Siddarth2230/qrlinks/pkg/logger"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:           "qrlinks",
		Short:         "Administer dynamic QR short links.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			logger.Initialize(cfg.Log.Level, cfg.Log.Pretty)
			st.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newCreateCmd(st),
		newShowCmd(st),
		newRewriteCmd(st),
		newDeleteCmd(st),
		newTokenCmd(st),
	)
	return root
}

// withApp opens the configured storage for the duration of fn.
func (st *cliState) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, st.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (st *cliState) shortURL(code string) string {
	return strings.TrimRight(st.cfg.Server.BaseURL, "/") + "/s/" + code
}

func printLink(w io.Writer, shortURL string, l *models.ShortLink) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Code:\t%s\n", l.Code)
	fmt.Fprintf(tw, "Short URL:\t%s\n", shortURL)
	fmt.Fprintf(tw, "Target:\t%s\n", l.Target)
	fmt.Fprintf(tw, "Category:\t%s\n", l.Category)
	if l.EventRef != nil {
		fmt.Fprintf(tw, "Event:\t%s\n", *l.EventRef)
	}
	if l.CreatedBy != nil {
		fmt.Fprintf(tw, "Created by:\t%s\n", *l.CreatedBy)
	}
	fmt.Fprintf(tw, "Visits:\t%d\n", l.Visits)
	fmt.Fprintf(tw, "Created:\t%s\n", l.CreatedAt.Format(time.RFC3339))
	if l.LastResolvedAt != nil {
		fmt.Fprintf(tw, "Last scanned:\t%s\n", l.LastResolvedAt.Format(time.RFC3339))
	}
	tw.Flush()
}
