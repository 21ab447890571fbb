package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recruit-backend/internal/shared/telemetry"
)

const (
	promptYes = "Yes"
	promptNo  = "No"
)

var errAborted = errors.New("aborted")

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rescore every application without a match percentage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecompute(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd)

	recomputeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	recomputeCmd.Flags().Bool("async", false, "enqueue one message per record instead of scoring inline")

	_ = viper.BindPFlag("recompute.yes", recomputeCmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("recompute.async", recomputeCmd.Flags().Lookup("async"))
}

func runRecompute(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := telemetry.Logger()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.ApplicationsRepo.ListNeedingScore(ctx)
	if err != nil {
		return fmt.Errorf("select records: %w", err)
	}
	logger.Info("recompute candidates", zap.Int("count", len(pending)))
	if len(pending) == 0 {
		return nil
	}

	if !viper.GetBool("recompute.yes") {
		if err := confirm(fmt.Sprintf("Rescore %d applications?", len(pending))); err != nil {
			return err
		}
	}

	var summary any
	if viper.GetBool("recompute.async") {
		summary, err = a.Applications.EnqueueRecomputeAll(ctx)
	} else {
		summary, err = a.Applications.RecomputeAll(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func confirm(label string) error {
	prompt := promptui.Select{
		Label: label,
		Items: []string{promptYes, promptNo},
	}
	_, choice, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	if choice != promptYes {
		return errAborted
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
