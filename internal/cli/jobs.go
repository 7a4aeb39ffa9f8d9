package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"volbot/internal/reminder"
	"volbot/internal/storage"
)

// JobsCmd returns the command group for inspecting pending reminder jobs.
func JobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage pending reminder jobs",
	}
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsCancelCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending reminder jobs, soonest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := openOffline(cmd)
			if err != nil {
				return err
			}
			defer o.close()

			jobs, err := o.store.ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No pending jobs.")
				return nil
			}
			sort.Slice(jobs, func(i, j int) bool { return jobs[i].FireAt.Before(jobs[j].FireAt) })

			now := o.clock.Now()
			overdue := color.New(color.FgRed)
			pending := color.New(color.FgGreen)
			for _, j := range jobs {
				until := j.FireAt.Sub(now).Round(time.Second)
				state := pending.Sprintf("in %s", until)
				if until < 0 {
					state = overdue.Sprintf("overdue by %s", -until)
				}
				fmt.Printf("%-40s fire at %s (%s)\n",
					j.Key, j.FireAt.Format("2006-01-02 15:04:05"), state)
			}
			fmt.Printf("\n%d job(s), clock: %s\n", len(jobs), o.clock.Status())
			return nil
		},
	}
}

func jobsCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel one pending reminder job",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, _ := cmd.Flags().GetInt64("task")
			assignmentID, _ := cmd.Flags().GetInt64("assignment")
			if taskID <= 0 || assignmentID <= 0 {
				return fmt.Errorf("both --task and --assignment are required")
			}

			o, err := openOffline(cmd)
			if err != nil {
				return err
			}
			defer o.close()

			key := reminder.Key(taskID, assignmentID)
			_, ok, err := o.store.GetJob(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("No pending job for %s.\n", key)
				return nil
			}
			if err := o.store.DeleteJob(cmd.Context(), key); err != nil {
				return err
			}
			if err := o.store.MarkNotificationScheduled(cmd.Context(), assignmentID, false); err != nil {
				// Job is gone either way; the flag repair is best effort here.
				if !errors.Is(err, storage.ErrNotFound) {
					fmt.Printf("warning: could not clear notification flag: %v\n", err)
				}
			}
			color.New(color.FgYellow).Printf("Cancelled job %s.\n", key)
			return nil
		},
	}
	cmd.Flags().Int64("task", 0, "task id of the job key")
	cmd.Flags().Int64("assignment", 0, "assignment id of the job key")
	return cmd
}
