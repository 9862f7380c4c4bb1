package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"resume-pipeline/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process <resume-id>",
	Short: "Run a pipeline task for one resume in this process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawTask, _ := cmd.Flags().GetString("task")
		task, ok := pipeline.ParseTask(rawTask)
		if !ok {
			return fmt.Errorf("unknown task %q", rawTask)
		}

		ctx := cmd.Context()
		rt, err := setup(ctx, nil)
		if err != nil {
			return err
		}
		defer rt.close(ctx)

		resumeID := args[0]
		if err := rt.app.Dispatcher.Run(ctx, task, resumeID); err != nil {
			return err
		}

		doc, found, err := rt.app.Artifacts.GetAnalysis(ctx, resumeID)
		if err != nil || !found {
			fmt.Fprintf(cmd.OutOrStdout(), "%s completed for %s\n", task, resumeID)
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringP("task", "t", string(pipeline.TaskProcess), "task to run: process, parse or analyze")
}
