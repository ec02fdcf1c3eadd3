package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ResyncOptions struct {
	GlobalOptions

	WebinarIDs []int64
}

func DefaultResyncOptions() *ResyncOptions {
	return &ResyncOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

// NewCmdResync starts a chunked mass resync, or with an id shows its
// progress.
func NewCmdResync() *cobra.Command {
	o := DefaultResyncOptions()
	cmd := &cobra.Command{
		Use:   "resync [ID]",
		Short: "Start a chunked mass resync or display one.",
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
	cmd.AddCommand(newCmdResyncChunk())
	return cmd
}

func (o *ResyncOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.Int64SliceVar(&o.WebinarIDs, "webinars", nil, "Webinar ids to resync, defaults to all known webinars")
}

func (o *ResyncOptions) Run(ctx context.Context, args []string) error {
	if len(args) == 1 {
		var reply map[string]any
		if err := o.request(ctx, http.MethodGet, "/api/v1/resyncs/"+args[0], nil, &reply); err != nil {
			return err
		}
		return printJSON(reply)
	}

	body := map[string]any{}
	if len(o.WebinarIDs) > 0 {
		body["webinarIds"] = o.WebinarIDs
	}

	var reply map[string]any
	if err := o.request(ctx, http.MethodPost, "/api/v1/resyncs", body, &reply); err != nil {
		return err
	}
	return printJSON(reply)
}

func newCmdResyncChunk() *cobra.Command {
	o := DefaultResyncOptions()
	chunkIndex := 0
	cmd := &cobra.Command{
		Use:   "chunk ID",
		Short: "Process one chunk of a mass resync synchronously.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/resyncs/%s/chunks/%d", args[0], chunkIndex)
			var reply map[string]any
			if err := o.request(cmd.Context(), http.MethodPost, path, nil, &reply); err != nil {
				return err
			}
			return printJSON(reply)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	cmd.Flags().IntVarP(&chunkIndex, "index", "i", 0, "Chunk index to process")
	return cmd
}
