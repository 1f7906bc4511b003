package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/leave"
)

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Manage leave requests",
}

var leaveAddCmd = &cobra.Command{
	Use:   "add",
	Short: "File a leave request",
	Long: `File a leave request for one (date, period, class) slot.
Approved leave shows as "leave" in the recap instead of "absent".

Examples:
  face-attendance leave add --identity 12 --date 2024-03-04 --period subuh --class 7A --reason "sick"
  face-attendance leave add --identity 12 --date 2024-03-04 --period subuh --class 7A --approved`,
	RunE: runLeaveAdd,
}

var leaveReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Approve or reject a leave request",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeaveReview,
}

var leaveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leave requests",
	RunE:  runLeaveList,
}

func init() {
	rootCmd.AddCommand(leaveCmd)
	leaveCmd.AddCommand(leaveAddCmd)
	leaveCmd.AddCommand(leaveReviewCmd)
	leaveCmd.AddCommand(leaveListCmd)

	leaveAddCmd.Flags().Int64("identity", 0, "Identity ID (required)")
	leaveAddCmd.Flags().String("date", "", "Date (YYYY-MM-DD, required)")
	leaveAddCmd.Flags().String("period", "", "Period name (required)")
	leaveAddCmd.Flags().String("class", "", "Class tag (required)")
	leaveAddCmd.Flags().String("reason", "", "Reason for the leave")
	leaveAddCmd.Flags().Bool("approved", false, "Create the request already approved")

	leaveReviewCmd.Flags().String("status", "", "New status: approved or rejected (required)")
	leaveReviewCmd.Flags().String("note", "", "Reviewer note")

	leaveListCmd.Flags().String("start", "", "First date (YYYY-MM-DD)")
	leaveListCmd.Flags().String("end", "", "Last date (YYYY-MM-DD)")
	leaveListCmd.Flags().String("class", "", "Class filter")
	leaveListCmd.Flags().String("status", "", "Status filter")
	leaveListCmd.Flags().Int64("identity", 0, "Identity filter")
	leaveListCmd.Flags().Bool("json", false, "Output as JSON")
}

// LeaveOutput is the CLI view of a leave request
type LeaveOutput struct {
	ID         string `json:"id"`
	IdentityID int64  `json:"identity_id"`
	Date       string `json:"date"`
	Period     string `json:"period"`
	Class      string `json:"class"`
	Reason     string `json:"reason,omitempty"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
}

func toLeaveOutput(l database.LeaveRequest) LeaveOutput {
	return LeaveOutput{
		ID:         l.ID,
		IdentityID: l.IdentityID,
		Date:       database.FormatDate(l.Date),
		Period:     l.Period,
		Class:      l.ClassTag,
		Reason:     l.Reason,
		Status:     string(l.Status),
		Note:       l.Note,
	}
}

func openLeaveService(ctx context.Context) (*leave.Service, database.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return leave.NewService(store, &events.NoopPublisher{}, cfg.Periods), store, nil
}

func runLeaveAdd(cmd *cobra.Command, args []string) error {
	date, err := mustGetDate(cmd, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		return errors.New("--date is required")
	}

	ctx := context.Background()
	svc, store, err := openLeaveService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	req := &database.LeaveRequest{
		IdentityID: mustGetInt64(cmd, "identity"),
		Date:       date,
		Period:     mustGetString(cmd, "period"),
		ClassTag:   mustGetString(cmd, "class"),
		Reason:     mustGetString(cmd, "reason"),
	}
	if err := svc.Create(ctx, req, mustGetBool(cmd, "approved")); err != nil {
		return err
	}
	fmt.Printf("Created leave request %s (%s)\n", req.ID, req.Status)
	return nil
}

func runLeaveReview(cmd *cobra.Command, args []string) error {
	status := database.LeaveStatus(mustGetString(cmd, "status"))

	ctx := context.Background()
	svc, store, err := openLeaveService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	req, err := svc.Review(ctx, args[0], status, mustGetString(cmd, "note"))
	if err != nil {
		return err
	}
	fmt.Printf("Leave request %s is now %s\n", req.ID, req.Status)
	return nil
}

func runLeaveList(cmd *cobra.Command, args []string) error {
	start, err := mustGetDate(cmd, "start")
	if err != nil {
		return err
	}
	end, err := mustGetDate(cmd, "end")
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, store, err := openLeaveService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	leaves, err := svc.List(ctx, database.RangeFilter{
		Start:      start,
		End:        end,
		ClassTag:   mustGetString(cmd, "class"),
		IdentityID: mustGetInt64(cmd, "identity"),
		Status:     database.LeaveStatus(mustGetString(cmd, "status")),
	})
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		out := make([]LeaveOutput, 0, len(leaves))
		for _, l := range leaves {
			out = append(out, toLeaveOutput(l))
		}
		return outputJSON(out)
	}

	if len(leaves) == 0 {
		fmt.Println("No leave requests found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIDENTITY\tDATE\tPERIOD\tCLASS\tSTATUS\tREASON")
	for _, l := range leaves {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.IdentityID, database.FormatDate(l.Date), l.Period, l.ClassTag, l.Status, l.Reason)
	}
	return w.Flush()
}
