package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicetray/vigil/pkg/client"
)

type apiFlags struct {
	URL     string
	Timeout time.Duration
}

func (f *apiFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.URL, "api", client.DefaultConfig().BaseURL, "daemon API base URL")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", 30*time.Second, "API request timeout")
}

func (f *apiFlags) client() *client.Client {
	return client.New(client.Config{BaseURL: f.URL, Timeout: f.Timeout})
}

func validService(s string) error {
	if s != client.ServiceServer && s != client.ServiceAutotype {
		return fmt.Errorf("unknown service %q: must be %s or %s", s, client.ServiceServer, client.ServiceAutotype)
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newStartCmd() *cobra.Command {
	var f apiFlags
	cmd := &cobra.Command{
		Use:   "start <server|autotype>",
		Short: "Start a supervised service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validService(args[0]); err != nil {
				return err
			}
			pid, err := f.client().Start(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s started (pid %d)\n", args[0], pid)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newStopCmd() *cobra.Command {
	var f apiFlags
	cmd := &cobra.Command{
		Use:   "stop <server|autotype>",
		Short: "Stop a supervised service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validService(args[0]); err != nil {
				return err
			}
			if err := f.client().Stop(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s stopped\n", args[0])
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newRestartCmd() *cobra.Command {
	var f apiFlags
	cmd := &cobra.Command{
		Use:   "restart <server|autotype>",
		Short: "Restart a supervised service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validService(args[0]); err != nil {
				return err
			}
			pid, err := f.client().Restart(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s restarted (pid %d)\n", args[0], pid)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var f apiFlags
	cmd := &cobra.Command{
		Use:   "status [server|autotype]",
		Short: "Show service status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if len(args) == 1 {
				if err := validService(args[0]); err != nil {
					return err
				}
				st, err := f.client().Status(ctx, args[0])
				if err != nil {
					return err
				}
				printJSON(st)
				return nil
			}
			sts, err := f.client().Statuses(ctx)
			if err != nil {
				return err
			}
			printJSON(sts)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsCmd() *cobra.Command {
	var f apiFlags
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent supervision events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			evs, err := f.client().Events(context.Background(), limit)
			if err != nil {
				return err
			}
			printJSON(evs)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	return cmd
}

func newLogsCmd() *cobra.Command {
	var f apiFlags
	var limit int
	cmd := &cobra.Command{
		Use:   "logs <server|autotype>",
		Short: "Show stored output of a supervised service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validService(args[0]); err != nil {
				return err
			}
			entries, err := f.client().Logs(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				fmt.Printf("%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of lines")
	return cmd
}
