package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/killallgit/sttclient/internal/core"
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/tasks"
	"github.com/killallgit/sttclient/pkg/export"
	"github.com/spf13/cobra"
)

// transcribeCmd runs one transcription to completion
var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe one audio file",
	Long: `Add an audio file, transcribe it and print or export the transcript.

The transcript is printed as plain text unless --output is given, in which
case it is written in the format derived from the output extension or
--format.

Example:
  sttclient transcribe interview.mp3
  sttclient transcribe interview.mp3 --model whisper-small --language de
  sttclient transcribe interview.mp3 --output interview.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().String("model", "", "model to use (defaults to models.default)")
	transcribeCmd.Flags().String("language", "", "language hint, empty to detect")
	transcribeCmd.Flags().StringP("output", "o", "", "write the transcript to this file")
	transcribeCmd.Flags().String("format", "", "export format: text, srt, vtt or json")
	transcribeCmd.Flags().Duration("timeout", 30*time.Minute, "give up after this long")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")
	language, _ := cmd.Flags().GetString("language")
	output, _ := cmd.Flags().GetString("output")
	formatName, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var format export.Format
	if formatName != "" {
		f, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		format = f
	}

	app, err := core.New(appConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	app.Start(ctx)

	file, err := app.Registry.Add(ctx, args[0])
	if err != nil {
		return err
	}

	var opts []tasks.StartOption
	if language != "" {
		opts = append(opts, tasks.WithLanguage(language))
	}
	id, err := app.Orchestrator.Start(file.ID, model, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Transcribing %s (task %s)\n", file.Name, id)

	task, err := app.WaitTask(ctx, id, 250*time.Millisecond)
	if err != nil {
		if task != nil && !task.IsFinished() {
			_ = app.Orchestrator.Cancel(id)
		}
		return fmt.Errorf("waiting for task %s: %w", id, err)
	}

	switch task.Status {
	case models.TaskStatusFailed:
		return fmt.Errorf("transcription failed: %s", task.ErrorMessage)
	case models.TaskStatusCancelled:
		return fmt.Errorf("transcription was cancelled")
	}

	if output == "" {
		if format == "" {
			format = export.FormatText
		}
		if err := export.Write(cmd.OutOrStdout(), task.Result, format); err != nil {
			return err
		}
		if format == export.FormatText {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}

	if err := app.Orchestrator.Export(id, output, format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Transcript written to %s\n", output)
	return nil
}
