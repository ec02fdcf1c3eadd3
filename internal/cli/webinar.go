package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type WebinarsOptions struct {
	GlobalOptions

	HistoryKey string
	Kind       string
}

func DefaultWebinarsOptions() *WebinarsOptions {
	return &WebinarsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

// NewCmdWebinars lists synced webinars, or displays one resource of a
// webinar: webinars 101, webinars 101/participants, webinars 101/recordings.
func NewCmdWebinars() *cobra.Command {
	o := DefaultWebinarsOptions()
	cmd := &cobra.Command{
		Use:   "webinars [ID[/RESOURCE]]",
		Short: "Display synced webinars and their snapshots.",
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
	return cmd
}

func (o *WebinarsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.HistoryKey, "history", "", "Show the version history of one participant key")
	fs.StringVar(&o.Kind, "kind", "", "Interaction kind filter: qa or poll")
}

func (o *WebinarsOptions) Run(ctx context.Context, args []string) error {
	path := "/api/v1/webinars"
	if len(args) == 1 {
		path += "/" + args[0]
	}

	sep := "?"
	if o.HistoryKey != "" {
		path += sep + "history=" + o.HistoryKey
		sep = "&"
	}
	if o.Kind != "" {
		path += sep + "kind=" + o.Kind
	}

	var reply map[string]any
	if err := o.request(ctx, http.MethodGet, path, nil, &reply); err != nil {
		return err
	}
	return printJSON(reply)
}
