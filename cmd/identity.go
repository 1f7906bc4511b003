package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage the roster",
}

var identityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an identity to the roster",
	Long: `Add an identity to the roster. Faces are enrolled separately with
the enroll command or through the API.

Examples:
  face-attendance identity add --external-id S-001 --name "Ahmad" --gender male --class 7A`,
	RunE: runIdentityAdd,
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roster identities",
	RunE:  runIdentityList,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityAddCmd)
	identityCmd.AddCommand(identityListCmd)

	identityAddCmd.Flags().String("external-id", "", "Roster number (required)")
	identityAddCmd.Flags().String("name", "", "Display name (required)")
	identityAddCmd.Flags().String("gender", "", "Gender: male or female (required)")
	identityAddCmd.Flags().StringSlice("class", nil, "Class tags (repeatable)")
	identityAddCmd.Flags().Bool("json", false, "Output as JSON")

	identityListCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentityOutput is the CLI view of an identity
type IdentityOutput struct {
	ID         int64    `json:"id"`
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Gender     string   `json:"gender"`
	ClassTags  []string `json:"class_tags"`
	Enrolled   bool     `json:"enrolled"`
}

func toIdentityOutput(i database.Identity) IdentityOutput {
	tags := i.ClassTags
	if tags == nil {
		tags = []string{}
	}
	return IdentityOutput{
		ID:         i.ID,
		ExternalID: i.ExternalID,
		Name:       i.Name,
		Gender:     i.Gender,
		ClassTags:  tags,
		Enrolled:   i.Enrolled,
	}
}

func runIdentityAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newAttendanceService(cfg, store, &events.NoopPublisher{})
	if err != nil {
		return err
	}

	identity := &database.Identity{
		ExternalID: mustGetString(cmd, "external-id"),
		Name:       mustGetString(cmd, "name"),
		Gender:     mustGetString(cmd, "gender"),
		ClassTags:  mustGetStringSlice(cmd, "class"),
	}
	if err := svc.CreateIdentity(ctx, identity); err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(toIdentityOutput(*identity))
	}
	fmt.Printf("Created identity %d (%s, %s)\n", identity.ID, identity.ExternalID, identity.Name)
	return nil
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	identities, err := store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	if mustGetBool(cmd, "json") {
		out := make([]IdentityOutput, 0, len(identities))
		for _, i := range identities {
			out = append(out, toIdentityOutput(i))
		}
		return outputJSON(out)
	}

	if len(identities) == 0 {
		fmt.Println("No identities found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXTERNAL ID\tNAME\tGENDER\tCLASSES\tENROLLED")
	for _, i := range identities {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n",
			i.ID, i.ExternalID, i.Name, i.Gender, strings.Join(i.ClassTags, ","), i.Enrolled)
	}
	return w.Flush()
}
