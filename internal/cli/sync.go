package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type SyncOptions struct {
	GlobalOptions

	JobType    string
	WebinarIDs []int64
}

func DefaultSyncOptions() *SyncOptions {
	return &SyncOptions{
		GlobalOptions: DefaultGlobalOptions(),
		JobType:       "comprehensive",
	}
}

func NewCmdSync() *cobra.Command {
	o := DefaultSyncOptions()
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Start a sync job and print it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *SyncOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.JobType, "type", "t", o.JobType, "Job type: discovery, detailed or comprehensive")
	fs.Int64SliceVar(&o.WebinarIDs, "webinars", nil, "Webinar ids to scope a detailed sync to")
}

func (o *SyncOptions) Run(ctx context.Context, args []string) error {
	body := map[string]any{"jobType": o.JobType}
	if len(o.WebinarIDs) > 0 {
		body["webinarIds"] = o.WebinarIDs
	}

	var reply map[string]any
	if err := o.request(ctx, http.MethodPost, "/api/v1/syncs", body, &reply); err != nil {
		return err
	}
	return printJSON(reply)
}

type JobsOptions struct {
	GlobalOptions

	Status string
	Limit  int
}

func DefaultJobsOptions() *JobsOptions {
	return &JobsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

// NewCmdJobs lists jobs or, given an id, shows or cancels one.
func NewCmdJobs() *cobra.Command {
	o := DefaultJobsOptions()
	cmd := &cobra.Command{
		Use:   "jobs [ID]",
		Short: "List sync jobs or display a single one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	cmd.AddCommand(newCmdCancelJob())
	return cmd
}

func (o *JobsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Status, "status", "s", o.Status, "Filter by status")
	fs.IntVarP(&o.Limit, "limit", "l", o.Limit, "Maximum number of jobs to list")
}

func (o *JobsOptions) Run(ctx context.Context, args []string) error {
	if len(args) == 1 {
		var reply map[string]any
		if err := o.request(ctx, http.MethodGet, "/api/v1/syncs/"+args[0], nil, &reply); err != nil {
			return err
		}
		return printJSON(reply)
	}

	path := "/api/v1/syncs"
	sep := "?"
	if o.Status != "" {
		path += sep + "status=" + o.Status
		sep = "&"
	}
	if o.Limit > 0 {
		path += fmt.Sprintf("%slimit=%d", sep, o.Limit)
	}

	var reply map[string]any
	if err := o.request(ctx, http.MethodGet, path, nil, &reply); err != nil {
		return err
	}
	return printJSON(reply)
}

func newCmdCancelJob() *cobra.Command {
	o := DefaultJobsOptions()
	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a pending or running sync job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply map[string]any
			if err := o.request(cmd.Context(), http.MethodDelete, "/api/v1/syncs/"+args[0], nil, &reply); err != nil {
				return err
			}
			return printJSON(reply)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}
