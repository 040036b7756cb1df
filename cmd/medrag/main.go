package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/siherrmann/medrag"
	"github.com/siherrmann/medrag/helper"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "medrag",
		Short:         "Medical question answering with retrieval augmented generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before the environment")

	load := func() (*medrag.MedRag, error) {
		config, err := helper.NewConfiguration(envFile)
		if err != nil {
			return nil, err
		}
		return medrag.New(config, nil)
	}

	cmd.AddCommand(newServeCommand(load))
	cmd.AddCommand(newIngestCommand(load))
	cmd.AddCommand(newAskCommand(load))
	return cmd
}

func newServeCommand(load func() (*medrag.MedRag, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := load()
			if err != nil {
				return err
			}
			defer m.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return m.Server().ListenAndServe(ctx)
		},
	}
	return cmd
}

func newIngestCommand(load func() (*medrag.MedRag, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Load a knowledge file into the vector store, skipping known paragraphs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load()
			if err != nil {
				return err
			}
			defer m.Close()

			result, err := m.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}
	return cmd
}

func newAskCommand(load func() (*medrag.MedRag, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load()
			if err != nil {
				return err
			}
			defer m.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), m.Ask(ctx, strings.Join(args, " ")))
			return err
		},
	}
	return cmd
}
