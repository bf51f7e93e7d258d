package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/alert"
	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/ledger"
	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/sentinel"
)

var (
	analyzeActor     string
	analyzeAction    string
	analyzeInput     string
	analyzeRationale string
	analyzeMeta      string
	analyzeConfig    string
	analyzeStore     string
	analyzeChain     string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeActor, "actor", "", "Actor identifier (required)")
	analyzeCmd.Flags().StringVar(&analyzeAction, "action", "", "Action name (required)")
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "Raw input to score")
	analyzeCmd.Flags().StringVar(&analyzeRationale, "rationale", "", "Free-text rationale for the action")
	analyzeCmd.Flags().StringVar(&analyzeMeta, "metadata", "", "Metadata as JSON object")
	analyzeCmd.Flags().StringVar(&analyzeConfig, "config", "", "Path to config YAML")
	analyzeCmd.Flags().StringVar(&analyzeStore, "store", "", "Path to operational event store (SQLite)")
	analyzeCmd.Flags().StringVar(&analyzeChain, "audit-chain", "", "Path to audit chain JSONL file")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a single action and print the security event",
	Long:  "Runs one analysis cycle from the command line.\nExits 0 on allow/warn, 1 on block/isolate — usable as a shell gate.",
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := config.LoadWithHash(analyzeConfig)
	if err != nil {
		return err
	}

	var meta map[string]any
	if analyzeMeta != "" {
		if err := json.Unmarshal([]byte(analyzeMeta), &meta); err != nil {
			return fmt.Errorf("invalid --metadata JSON: %w", err)
		}
	}

	var store *ledger.Store
	if analyzeStore != "" {
		store, err = ledger.OpenStore(analyzeStore)
		if err != nil {
			return err
		}
	}
	var chain *ledger.Chain
	if analyzeChain != "" {
		chain, err = ledger.OpenChain(analyzeChain)
		if err != nil {
			return err
		}
	}
	writer := ledger.NewWriter(store, chain, nil)
	defer writer.Close()

	dispatcher, err := alert.NewDispatcher(cfg.Alerts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: alerts disabled: %v\n", err)
		dispatcher = nil
	}
	if dispatcher != nil {
		defer dispatcher.Close()
	}

	engine, err := sentinel.New(cfg, cfgHash, writer, dispatcher, nil)
	if err != nil {
		return err
	}

	event, err := engine.Analyze(context.Background(), sentinel.Request{
		ActorID:    analyzeActor,
		ActionType: analyzeAction,
		RawInput:   analyzeInput,
		Rationale:  analyzeRationale,
		Metadata:   model.MetadataFromMap(meta),
	})
	if err != nil {
		return err
	}
	engine.Wait()
	if dispatcher != nil {
		dispatcher.Wait()
	}

	out, _ := json.MarshalIndent(event, "", "  ")
	fmt.Println(string(out))

	if event.Decision == model.Block || event.Decision == model.Isolate {
		// os.Exit skips the deferred cleanup, so release the ledger
		// and alert sinks here.
		if dispatcher != nil {
			dispatcher.Close()
		}
		writer.Close()
		os.Exit(1)
	}
	return nil
}
