package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"recruit-backend/internal/extract"
	"recruit-backend/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a CV file against a job without persisting anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScore(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("file", "f", "", "path to a PDF or DOCX CV")
	scoreCmd.Flags().String("job", "", "job id to score against")
	scoreCmd.Flags().String("requirements", "", "comma separated requirements, used when --job is empty")
	_ = scoreCmd.MarkFlagRequired("file")

	_ = viper.BindPFlag("score.file", scoreCmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("score.job", scoreCmd.Flags().Lookup("job"))
	_ = viper.BindPFlag("score.requirements", scoreCmd.Flags().Lookup("requirements"))
}

type scoreOutput struct {
	File     string              `json:"file"`
	Method   string              `json:"method"`
	Status   string              `json:"status"`
	Verdict  scoring.ChunkResult `json:"verdict"`
	Report   scoring.Report      `json:"report"`
	Flagged  bool                `json:"flagged"`
	TextSize int                 `json:"textSize"`
}

func runScore(cmd *cobra.Command) error {
	ctx := cmd.Context()

	path := viper.GetString("score.file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cv: %w", err)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	target := scoring.Target{Requirements: parseRequirements(viper.GetString("score.requirements"))}
	if jobID := strings.TrimSpace(viper.GetString("score.job")); jobID != "" {
		job, err := a.Jobs.Get(ctx, jobID)
		if err != nil {
			return err
		}
		target = scoring.Target{Title: job.Title, Requirements: job.Requirements}
	}
	if len(target.Requirements) == 0 {
		return errors.New("either --job or --requirements is required")
	}

	name := filepath.Base(path)
	res, err := a.Extractor.Extract(ctx, data, extract.DetectMimeType("", name, data), name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(res.Text) == "" {
		return fmt.Errorf("%w: no text in %s", extract.ErrExtractionFailed, name)
	}

	verdict, err := a.Scorer.Score(ctx, res.Text, target)
	if err != nil {
		return err
	}
	classifier := scoring.NewClassifier(a.Config.Pipeline.ShortlistThreshold)
	return printJSON(scoreOutput{
		File:     name,
		Method:   res.Method,
		Status:   classifier.Classify(verdict.Aggregate.MatchPercentage),
		Verdict:  verdict.Aggregate,
		Report:   verdict.Report,
		Flagged:  verdict.Report.Flagged(),
		TextSize: len(res.Text),
	})
}

// parseRequirements splits a comma separated list and drops blanks.
func parseRequirements(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
