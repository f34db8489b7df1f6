// Command grievancectl is the operator tool for moving complaints through
// their lifecycle. Status changes email the complainant.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raushankrgupta/maternity-matters/complaints"
	"github.com/raushankrgupta/maternity-matters/config"
	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/notify"
	"github.com/raushankrgupta/maternity-matters/store"
	"github.com/raushankrgupta/maternity-matters/utils"
)

func main() {
	if err := newRootCommand(openMongo).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// opener connects the complaint service. The returned func releases it.
type opener func(ctx context.Context) (*complaints.Service, func(), error)

// openMongo wires the service against the configured database and SendGrid.
func openMongo(ctx context.Context) (*complaints.Service, func(), error) {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	utils.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := utils.ConnectMongo(ctx, cfg.MongoURI); err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	notifier, err := notify.New(utils.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddress), cfg.ClientURL)
	if err != nil {
		_ = utils.DisconnectMongo(context.Background())
		return nil, nil, err
	}
	svc := complaints.NewService(store.NewMongoComplaints(utils.GetDatabase(cfg.DBName)), notifier)
	return svc, func() { _ = utils.DisconnectMongo(context.Background()) }, nil
}

func newRootCommand(open opener) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "grievancectl",
		Short:         "Operator tool for Maternity Matters complaints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if output != "yaml" && output != "json" {
				return fmt.Errorf("unknown output format %q (want yaml or json)", output)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")

	cmd.AddCommand(newStatusCommand(open, &output))
	cmd.AddCommand(newComplaintCommand(open, &output))
	return cmd
}

func newStatusCommand(open opener, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Complaint status operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newStatusSetCommand(open, output))
	cmd.AddCommand(newStatusTransitionsCommand(output))
	return cmd
}

func newStatusSetCommand(open opener, output *string) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "set <complaint-id> <status>",
		Short: "Move a complaint to a new status and email the complainant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(commandContext(cmd))
			if err != nil {
				return err
			}
			defer closeFn()

			updated, err := svc.SetStatus(commandContext(cmd), args[0], models.ComplaintStatus(args[1]), note)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), *output, newComplaintView(updated))
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Note recorded in the history and included in the email")
	return cmd
}

type transitionView struct {
	Status models.ComplaintStatus   `yaml:"status" json:"status"`
	Next   []models.ComplaintStatus `yaml:"next" json:"next"`
}

func newStatusTransitionsCommand(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transitions [status]",
		Short: "List the allowed status transitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := models.Statuses
			if len(args) == 1 {
				s := models.ComplaintStatus(args[0])
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", args[0])
				}
				statuses = []models.ComplaintStatus{s}
			}
			views := make([]transitionView, 0, len(statuses))
			for _, s := range statuses {
				views = append(views, transitionView{Status: s, Next: complaints.NextStatuses(s)})
			}
			return write(cmd.OutOrStdout(), *output, views)
		},
	}
}

func newComplaintCommand(open opener, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complaint",
		Short: "Complaint lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <complaint-id>",
		Short: "Show a complaint with its status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(commandContext(cmd))
			if err != nil {
				return err
			}
			defer closeFn()

			complaint, err := svc.Lookup(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), *output, newComplaintView(complaint))
		},
	})
	return cmd
}

type historyView struct {
	From      models.ComplaintStatus `yaml:"from" json:"from"`
	To        models.ComplaintStatus `yaml:"to" json:"to"`
	Note      string                 `yaml:"note,omitempty" json:"note,omitempty"`
	ChangedAt string                 `yaml:"changedAt" json:"changedAt"`
}

type complaintView struct {
	ID          string                   `yaml:"id" json:"id"`
	Status      models.ComplaintStatus   `yaml:"status" json:"status"`
	Next        []models.ComplaintStatus `yaml:"next" json:"next"`
	Complainant string                   `yaml:"complainant" json:"complainant"`
	Email       string                   `yaml:"email" json:"email"`
	Company     string                   `yaml:"company" json:"company"`
	Issues      []string                 `yaml:"issues" json:"issues"`
	SubmittedAt string                   `yaml:"submittedAt" json:"submittedAt"`
	UpdatedAt   string                   `yaml:"updatedAt" json:"updatedAt"`
	History     []historyView            `yaml:"history,omitempty" json:"history,omitempty"`
}

func newComplaintView(c *models.Complaint) complaintView {
	view := complaintView{
		ID:          c.ID.Hex(),
		Status:      c.Status,
		Next:        complaints.NextStatuses(c.Status),
		Complainant: c.ComplainantName,
		Email:       c.ComplainantEmail,
		Company:     c.CompanyName,
		Issues:      c.IssuesFaced,
		SubmittedAt: c.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
	for _, h := range c.StatusHistory {
		view.History = append(view.History, historyView{
			From:      h.From,
			To:        h.To,
			Note:      h.Note,
			ChangedAt: h.ChangedAt.Format(time.RFC3339),
		})
	}
	return view
}

func write(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
