package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listPage   int
	listSize   int
)

var submitCmd = &cobra.Command{
	Use:   "submit <url>",
	Short: "Create a job for a source URL and schedule it",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		job, err := a.jobsUC.Submit(cmd.Context(), &models.SubmitInput{URL: args[0]})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("queued"), job.ExternalID)
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the progress of a job",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		view, err := a.jobsUC.GetStatus(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Job:     %s\n", view.JobID)
		fmt.Fprintf(out, "Status:  %s\n", colorStatus(view.Status))
		fmt.Fprintf(out, "Step:    %s\n", view.Step)
		fmt.Fprintf(out, "Percent: %d\n", view.Percent)
		fmt.Fprintf(out, "Message: %s\n", view.Message)
		if view.Title != "" {
			fmt.Fprintf(out, "Title:   %s\n", view.Title)
		}
		fmt.Fprintf(out, "Updated: %s\n", view.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		pq := &utils.Pagination{}
		if err := pq.SetPage(strconv.Itoa(listPage)); err != nil {
			return err
		}
		if err := pq.SetSize(strconv.Itoa(listSize)); err != nil {
			return err
		}
		list, err := a.jobsUC.ListJobs(cmd.Context(), models.JobStatus(listStatus), pq)
		if err != nil {
			return err
		}
		renderJobs(cmd.OutOrStdout(), list.Jobs)
		fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d jobs\n", list.Page, len(list.Jobs), list.TotalCount)
		return nil
	}),
}

var requeueCmd = &cobra.Command{
	Use:   "requeue <job-id>",
	Short: "Send a failed job back to the queue",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		job, err := a.jobsUC.Requeue(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (attempt %d)\n", color.GreenString("requeued"), job.ExternalID, job.Attempts+1)
		return nil
	}),
}

var reclaimCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Return transcribing jobs with expired claims to awaiting_transcription",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		n, err := a.jobsUC.ReclaimExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d job(s)\n", n)
		return nil
	}),
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "only jobs in this status")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listSize, "size", 20, "page size")

	rootCmd.AddCommand(submitCmd, statusCmd, listCmd, requeueCmd, reclaimCmd)
}

func parseJobID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q: %w", s, models.ErrValidation)
	}
	return id, nil
}

func renderJobs(w io.Writer, list []*models.Job) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Job ID", "Status", "Percent", "Title", "Attempts", "Updated"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, job := range list {
		title := job.Title
		if title == "" {
			title = job.SourceURL
		}
		table.Append([]string{
			job.ExternalID.String(),
			colorStatus(job.Status),
			strconv.Itoa(job.Percent),
			title,
			strconv.Itoa(job.Attempts),
			job.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func colorStatus(s models.JobStatus) string {
	switch s {
	case models.JobStatusReady:
		return color.GreenString(s.String())
	case models.JobStatusFailed:
		return color.RedString(s.String())
	case models.JobStatusTranscribing, models.JobStatusAwaitingTranscription:
		return color.CyanString(s.String())
	default:
		return color.YellowString(s.String())
	}
}
