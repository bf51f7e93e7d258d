package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/ledger"
	"github.com/ppiankov/sentinel/internal/model"
)

var (
	eventsStore    string
	eventsActor    string
	eventsSince    string
	eventsUntil    string
	eventsMinLevel string
	eventsLimit    int
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsStore, "store", "", "Path to operational event store (SQLite)")
	eventsCmd.Flags().StringVar(&eventsActor, "actor", "", "Filter by actor id")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "Lower time bound (RFC3339)")
	eventsCmd.Flags().StringVar(&eventsUntil, "until", "", "Upper time bound (RFC3339)")
	eventsCmd.Flags().StringVar(&eventsMinLevel, "min-level", "", "Minimum threat level (low, medium, high, critical)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Maximum number of events to return")
	eventsCmd.MarkFlagRequired("store")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the operational event store",
	Long:  "Lists recorded security events filtered by actor, time range, and\nminimum threat level, newest first.",
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	store, err := ledger.OpenStore(eventsStore)
	if err != nil {
		return err
	}
	defer store.Close()

	q := ledger.Query{
		ActorID: eventsActor,
		Limit:   eventsLimit,
	}
	if eventsSince != "" {
		t, err := time.Parse(time.RFC3339, eventsSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		q.Since = t
	}
	if eventsUntil != "" {
		t, err := time.Parse(time.RFC3339, eventsUntil)
		if err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}
		q.Until = t
	}
	if eventsMinLevel != "" {
		q.MinLevel = model.ParseLevel(eventsMinLevel)
	}

	events, err := store.Events(q)
	if err != nil {
		return err
	}

	for _, event := range events {
		out, _ := json.MarshalIndent(event, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}
