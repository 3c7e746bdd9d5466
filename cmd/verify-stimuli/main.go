// Command verify-stimuli re-checks the stimulus-set invariants against an
// exported study database.
//
// Usage:
//
//	verify-stimuli [flags]
//
// Flags:
//
//	-db string
//	      Path to the study database (default "stimuli.db")
//	-run string
//	      Run ID to verify (default: the most recent run)
//	-min-forward float
//	      Forward-association floor every row must exceed (default 0.1)
//	-per-response int
//	      Required cues per target (default 3)
//	-suffix string
//	      Plural suffix (default "s")
//	-verbose
//	      List every violating row
//
// Exit codes:
//
//	0 - All invariants hold
//	1 - One or more invariants violated
//	2 - Error opening the database or finding the run
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

type check struct {
	name  string
	query string        // returns one row per violation, first column printable
	args  []interface{} // bind arguments, in query order
}

func main() {
	dbPath := flag.String("db", "stimuli.db", "Path to the study database")
	runID := flag.String("run", "", "Run ID to verify (default: most recent)")
	minForward := flag.Float64("min-forward", 0.1, "Forward-association floor")
	perResponse := flag.Int("per-response", 3, "Required cues per target")
	suffix := flag.String("suffix", "s", "Plural suffix")
	verbose := flag.Bool("verbose", false, "List every violating row")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(2)
	}
	defer db.Close()

	if *runID == "" {
		err := db.QueryRow(`SELECT id FROM runs ORDER BY created_at DESC LIMIT 1`).Scan(runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding latest run: %v\n", err)
			os.Exit(2)
		}
	}
	run := *runID

	checks := []check{
		{
			name: "cue values are pairwise distinct",
			query: `SELECT cue FROM semantic_stimuli WHERE run_id = ?
			        GROUP BY cue HAVING COUNT(*) > 1`,
			args: []interface{}{run},
		},
		{
			name: "no word is both a cue and a response",
			query: `SELECT DISTINCT cue FROM semantic_stimuli WHERE run_id = ?
			        AND cue IN (SELECT response FROM semantic_stimuli WHERE run_id = ?)`,
			args: []interface{}{run, run},
		},
		{
			name: "no singular/plural pair in the cue column",
			query: `SELECT DISTINCT a.cue FROM semantic_stimuli a
			        JOIN semantic_stimuli b ON b.run_id = a.run_id AND b.cue = a.cue || ?
			        WHERE a.run_id = ?`,
			args: []interface{}{*suffix, run},
		},
		{
			name: "no singular/plural pair in the response column",
			query: `SELECT DISTINCT a.response FROM semantic_stimuli a
			        JOIN semantic_stimuli b ON b.run_id = a.run_id AND b.response = a.response || ?
			        WHERE a.run_id = ?`,
			args: []interface{}{*suffix, run},
		},
		{
			name: "no singular/plural pair across columns",
			query: `SELECT DISTINCT a.cue FROM semantic_stimuli a
			        JOIN semantic_stimuli b ON b.run_id = a.run_id AND b.response = a.cue || ?
			        WHERE a.run_id = ?
			        UNION
			        SELECT DISTINCT a.response FROM semantic_stimuli a
			        JOIN semantic_stimuli b ON b.run_id = a.run_id AND b.cue = a.response || ?
			        WHERE a.run_id = ?`,
			args: []interface{}{*suffix, run, *suffix, run},
		},
		{
			name: "every target has exactly the required cue count",
			query: `SELECT response FROM semantic_stimuli WHERE run_id = ?
			        GROUP BY response HAVING COUNT(*) != ?`,
			args: []interface{}{run, *perResponse},
		},
		{
			name: "forward association exceeds the floor",
			query: `SELECT cue || ' -> ' || response FROM semantic_stimuli
			        WHERE run_id = ? AND forward <= ?`,
			args: []interface{}{run, *minForward},
		},
		{
			name: "usable target count divides into conditions",
			query: `SELECT id FROM runs WHERE id = ?
			        AND (usable_target_count % 3 != 0 OR usable_target_count > distinct_targets)`,
			args: []interface{}{run},
		},
		{
			name: "episodic cues are disjoint from the semantic set",
			query: `SELECT episodic_cue FROM episodic_pairs WHERE run_id = ?
			        AND (episodic_cue IN (SELECT cue FROM semantic_stimuli WHERE run_id = ?)
			          OR episodic_cue IN (SELECT response FROM semantic_stimuli WHERE run_id = ?))`,
			args: []interface{}{run, run, run},
		},
		{
			name: "every target has exactly one episodic pairing",
			query: `SELECT response FROM semantic_stimuli WHERE run_id = ?
			        AND response NOT IN (SELECT response FROM episodic_pairs WHERE run_id = ?)
			        UNION
			        SELECT response FROM episodic_pairs WHERE run_id = ?
			        GROUP BY response HAVING COUNT(*) > 1`,
			args: []interface{}{run, run, run},
		},
	}

	failed := 0
	for _, c := range checks {
		violations, err := runCheck(db, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running check %q: %v\n", c.name, err)
			os.Exit(2)
		}
		if len(violations) == 0 {
			fmt.Printf("PASS  %s\n", c.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s (%d violations)\n", c.name, len(violations))
		if *verbose {
			for _, v := range violations {
				fmt.Printf("      %s\n", v)
			}
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d checks failed for run %s\n", failed, len(checks), run)
		os.Exit(1)
	}
	fmt.Printf("\nAll %d checks passed for run %s\n", len(checks), run)
}

func runCheck(db *sql.DB, c check) ([]string, error) {
	rows, err := db.Query(c.query, c.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
