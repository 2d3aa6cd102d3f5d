package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mairylabs/triadic-controller/internal/learn"
	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/provenance"
	"github.com/mairylabs/triadic-controller/internal/shell"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to triadic_state.db")
	last := flag.Int("last", 20, "show N most recent turns")
	thread := flag.String("thread", "", "show messages of one thread")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/triadic_state.db [--last N] [--thread id] [--json]")
		os.Exit(2)
	}

	store, err := memory.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *thread != "" {
		if err := runThreadMode(store, *thread, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runTurnMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region turn-mode

type turnRow struct {
	TurnID       string  `json:"turn_id"`
	Status       string  `json:"status"`
	AttemptsUsed int     `json:"attempts_used"`
	CandidateID  string  `json:"candidate_id"`
	InputK       float64 `json:"input_kindness"`
	InputF       float64 `json:"input_freedom"`
	InputT       float64 `json:"input_truth"`
	OutputK      float64 `json:"output_kindness"`
	OutputF      float64 `json:"output_freedom"`
	OutputT      float64 `json:"output_truth"`
	CreatedAt    string  `json:"created_at"`
}

func runTurnMode(store *memory.Store, last int, jsonOut bool) error {
	if err := provenance.Init(store.DB()); err != nil {
		return err
	}
	entries, err := provenance.Recent(store.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no turns found")
		return nil
	}

	rows := make([]turnRow, len(entries))
	for i, e := range entries {
		rows[i] = turnRow{
			TurnID:       e.TurnID,
			Status:       e.Status,
			AttemptsUsed: e.AttemptsUsed,
			CandidateID:  e.CandidateID,
			InputK:       e.InputTriad.Kindness,
			InputF:       e.InputTriad.Freedom,
			InputT:       e.InputTriad.Truth,
			OutputK:      e.OutputTriad.Kindness,
			OutputF:      e.OutputTriad.Freedom,
			OutputT:      e.OutputTriad.Truth,
			CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-20s  %8s  %-10s  %-20s  %-20s  %s\n",
		"Turn", "Status", "Attempts", "Candidate", "Input (K/F/T)", "Output (K/F/T)", "Time")
	for _, r := range rows {
		fmt.Printf("%-10s  %-20s  %8d  %-10s  %5.2f %5.2f %5.2f   %5.2f %5.2f %5.2f   %s\n",
			shortID(r.TurnID), r.Status, r.AttemptsUsed, r.CandidateID,
			r.InputK, r.InputF, r.InputT, r.OutputK, r.OutputF, r.OutputT, r.CreatedAt)
	}

	return printStateSummary(store)
}

func printStateSummary(store *memory.Store) error {
	ctx := context.Background()

	stats, err := store.Statistics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nMemory:\n")
	for _, key := range []string{"contextual_count", "identity_count", "thread_count"} {
		if v, ok := stats[key]; ok {
			fmt.Printf("  %-18s %v\n", key, v)
		}
	}

	mgr, err := shell.NewManager(store.DB(), shell.DefaultConfig())
	if err != nil {
		return err
	}
	sum, err := mgr.StateSummary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nShell state:\n")
	fmt.Printf("  target       K=%.2f F=%.2f T=%.2f\n",
		sum["target_kindness"], sum["target_freedom"], sum["target_truth"])
	fmt.Printf("  trajectory   %v\n", sum["trajectory"])
	fmt.Printf("  interactions %v\n", sum["interactions"])

	deviations, err := learn.NewDeviationLog(store.DB())
	if err != nil {
		return err
	}
	count, err := deviations.Count(ctx)
	if err != nil {
		return err
	}
	mean, considered, err := deviations.WeightedMean(ctx, 50)
	if err != nil {
		return err
	}
	fmt.Printf("\nDeviations:\n")
	fmt.Printf("  recorded     %d\n", count)
	if considered > 0 {
		fmt.Printf("  recent mean  ΔK=%.3f ΔF=%.3f ΔT=%.3f (last %d, decay-weighted)\n",
			mean[0], mean[1], mean[2], considered)
	}
	return nil
}

// #endregion turn-mode

// #region thread-mode

type messageRow struct {
	ExchangeID string  `json:"exchange_id"`
	Role       string  `json:"role"`
	Content    string  `json:"content"`
	Tone       string  `json:"emotional_tone"`
	Kindness   float64 `json:"kindness"`
	Freedom    float64 `json:"freedom"`
	Truth      float64 `json:"truth"`
	CreatedAt  string  `json:"created_at"`
}

func runThreadMode(store *memory.Store, threadID string, last int, jsonOut bool) error {
	messages, err := store.ThreadMessages(context.Background(), threadID, last)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(os.Stderr, "no messages found")
		return nil
	}

	rows := make([]messageRow, len(messages))
	for i, m := range messages {
		rows[i] = messageRow{
			ExchangeID: m.ExchangeID,
			Role:       m.Role,
			Content:    m.Content,
			Tone:       m.EmotionalTone,
			Kindness:   m.Triad.Kindness,
			Freedom:    m.Triad.Freedom,
			Truth:      m.Triad.Truth,
			CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	for _, r := range rows {
		fmt.Printf("[%s] %s (%s, K=%.2f F=%.2f T=%.2f)\n  %s\n",
			r.CreatedAt, r.Role, r.Tone, r.Kindness, r.Freedom, r.Truth, r.Content)
	}
	return nil
}

// #endregion thread-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
