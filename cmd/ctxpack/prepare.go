package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lifeos/ctxpack/pkg/intent"
	"github.com/lifeos/ctxpack/pkg/pipeline"
	"github.com/lifeos/ctxpack/pkg/version"
)

func newPrepareCmd(opts *globalOptions) *cobra.Command {
	var (
		userID string
		kinds  []string
		full   bool
	)

	cmd := &cobra.Command{
		Use:   "prepare [text]",
		Short: "Assemble the message list for one request and print it as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			// stdout carries the JSON result.
			if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
				cfg.Log.Output = "stderr"
			}
			log := newLogger(cfg)
			defer log.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := buildApp(ctx, cfg, log, appOptions{})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.Error("Error closing components", "error", err)
				}
			}()

			res, err := a.pipeline.Prepare(ctx, pipeline.Request{
				UserID: userID,
				Text:   strings.Join(args, " "),
				Kinds:  kinds,
			})
			if err != nil {
				return err
			}
			if full {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeJSON(cmd.OutOrStdout(), res.Messages)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User whose memory is searched (required)")
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "Restrict retrieval to these memory kinds")
	cmd.Flags().BoolVar(&full, "full", false, "Print intent, date hints and stats alongside the messages")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Print the intent of a request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), intent.Classify(strings.Join(args, " ")))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
