package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/oracle"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Backend and model management",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models installed on the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		client, err := newClient(clientOptions(cfg))
		if err != nil {
			return err
		}
		lister, ok := client.(oracle.Lister)
		if !ok {
			return fmt.Errorf("backend %s cannot list models", client.Name())
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.ProbeTimeoutSeconds)*time.Second)
		defer cancel()
		models, err := lister.Models(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitBackendUnavailable
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s:\n", client.Name())
		for _, m := range models {
			marker := " "
			if m == cfg.Model {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, m)
		}
		return nil
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the backend is reachable and serves the configured model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		client, err := newClient(clientOptions(cfg))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checking %s (%s)...\n", client.Name(), cfg.Model)

		timeout := time.Duration(cfg.ProbeTimeoutSeconds) * time.Second
		if err := oracle.Probe(cmd.Context(), client, timeout); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = ExitBackendUnavailable
			return nil
		}

		fmt.Fprintf(out, "OK: %s is reachable and serves %s\n", client.Name(), cfg.Model)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	for _, cmd := range []*cobra.Command{modelsListCmd, modelsDoctorCmd} {
		cmd.Flags().StringVar(&flagBackend, "backend", "", "Backend (ollama, openai)")
		cmd.Flags().StringVar(&flagEndpoint, "endpoint", "", "Backend base URL")
		cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	}
}
