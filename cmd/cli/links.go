package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Siddarth2230/qrlinks/internal/app"
	"github.com/Siddarth2230/qrlinks/internal/models"
	"github.com/Siddarth2230/qrlinks/internal/service"
)

func newCreateCmd(st *cliState) *cobra.Command {
	var target, eventRef, creator string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a short link for a target.",
		Example: `  qrlinks create --target "https://example.com/menu"
  qrlinks create --target "https://example.com/gala" --event evt-42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := service.CreateParams{Target: target}
			if eventRef != "" {
				params.EventRef = &eventRef
			}
			if creator != "" {
				params.Creator = &creator
			}
			return st.withApp(cmd, func(ctx context.Context, a *app.App) error {
				link, err := a.Registry.Create(ctx, params)
				if err != nil {
					return err
				}
				printLink(cmd.OutOrStdout(), st.shortURL(link.Code), link)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "target URL or content")
	cmd.Flags().StringVar(&eventRef, "event", "", "bind the link to an event")
	cmd.Flags().StringVar(&creator, "creator", "", "creator id to record")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newShowCmd(st *cliState) *cobra.Command {
	var eventRef string

	cmd := &cobra.Command{
		Use:   "show [code]",
		Short: "Show a link and its visit count.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (eventRef != "") {
				return errors.New("pass either a code or --event")
			}
			return st.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					link *models.ShortLink
					err  error
				)
				if eventRef != "" {
					link, err = a.Registry.FindByEvent(ctx, eventRef)
				} else {
					link, err = a.Registry.FindByCode(ctx, args[0])
				}
				if err != nil {
					return err
				}
				printLink(cmd.OutOrStdout(), st.shortURL(link.Code), link)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventRef, "event", "", "look up the link bound to an event")
	return cmd
}

func newRewriteCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <code> <new-target>",
		Short: "Point an existing code at a new target.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withApp(cmd, func(ctx context.Context, a *app.App) error {
				link, err := service.NewRewriter(a.Registry).Rewrite(ctx, nil, args[0], args[1])
				if err != nil {
					return err
				}
				printLink(cmd.OutOrStdout(), st.shortURL(link.Code), link)
				return nil
			})
		},
	}
}

func newDeleteCmd(st *cliState) *cobra.Command {
	var eventRef string

	cmd := &cobra.Command{
		Use:   "delete [code]",
		Short: "Delete a link, or every link bound to an event.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (eventRef != "") {
				return errors.New("pass either a code or --event")
			}
			return st.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if eventRef != "" {
					n, err := a.Registry.DeleteByEvent(ctx, eventRef)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d link(s) for event %s\n", n, eventRef)
					return nil
				}
				if err := a.Registry.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventRef, "event", "", "delete every link bound to this event")
	return cmd
}
