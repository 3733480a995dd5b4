// Dumps the persisted controller state for troubleshooting: the per-zone
// mode records and the cumulative boiler runtime.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/homehub/heating-controller/db"
)

func main() {
	dbPath := flag.String("db", "data/heating.db", "Path to state database")
	flag.Parse()

	conn, err := db.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	store := db.NewStore(conn)

	states, err := store.AllModeStates()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read mode states: %v\n", err)
		os.Exit(1)
	}

	if len(states) == 0 {
		fmt.Println("no persisted zone modes")
	}
	for zone, st := range states {
		fmt.Printf("zone %s:\n", zone)
		fmt.Printf("  mode: %s\n", st.Mode)
		if st.ManualSetpoint != nil {
			fmt.Printf("  manual_setpoint: %.1f\n", *st.ManualSetpoint)
		}
		if st.BoostExpiresAt != nil {
			fmt.Printf("  boost_expires_at: %s\n", st.BoostExpiresAt.Format(time.RFC3339))
		}
		if st.PreviousMode != nil {
			fmt.Printf("  previous_mode: %s\n", *st.PreviousMode)
		}
		fmt.Printf("  last_updated: %s\n", st.LastUpdated.Format(time.RFC3339))
	}

	minutes, err := store.BoilerRuntimeMinutes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read boiler runtime: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("boiler runtime: %.1f minutes\n", minutes)
}
