package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mairylabs/triadic-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	results, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}

	os.Exit(printComparison(f, results))
}

// #endregion main

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 0 when every turn matched its expectation, 1 otherwise.
func printComparison(f *replay.Fixture, results []replay.ReplayResult) int {
	expected := make(map[string]replay.FixtureExpectedResult, len(f.ExpectedResults))
	for _, er := range f.ExpectedResults {
		expected[er.TurnID] = er
	}

	fmt.Printf("%-12s| %-20s| %-20s| %-10s| %s\n", "Turn", "Expected", "Replayed", "Attempts", "Match")
	fmt.Printf("%-12s+%-21s+%-21s+%-11s+%s\n",
		"------------", "---------------------", "---------------------", "-----------", "------")

	for _, r := range results {
		expStatus := "—"
		if er, ok := expected[r.TurnID]; ok {
			expStatus = er.Status
		}
		match := "OK"
		if !r.Matched {
			match = "DIFF"
		}
		fmt.Printf("%-12s| %-20s| %-20s| %-10d| %s\n",
			r.TurnID, expStatus, r.Status, r.AttemptsUsed, match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d turns, %d approved, %d limitation, %d diverge\n",
		s.TotalTurns, s.Approved, s.Limitations, s.Mismatches)

	if s.Mismatches > 0 {
		return 1
	}
	return 0
}

// #endregion output
