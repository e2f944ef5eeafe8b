package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"immortal.idle/internal/persistence/indexdb"
	"immortal.idle/internal/persistence/snapshot"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		savePath = flag.String("save", "", "save file to print (default: latest in <data>/saves)")
		limit    = flag.Int("n", 20, "number of recent audit entries to print")
		noDB     = flag.Bool("disable_db", false, "skip the progression index")
	)
	flag.Parse()

	path := strings.TrimSpace(*savePath)
	if path == "" {
		p, err := snapshot.LatestSave(filepath.Join(*dataDir, "saves"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "list saves:", err)
			os.Exit(1)
		}
		path = p
	}
	if path != "" {
		sv, err := snapshot.ReadSave(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read save:", err)
			os.Exit(1)
		}
		printSave(path, sv)
	} else {
		fmt.Println("no saves")
	}

	if *noDB {
		return
	}
	dbPath := filepath.Join(*dataDir, "index", "idle.sqlite")
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()
	if err := printIndex(idx, *limit); err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		os.Exit(1)
	}
}

func printSave(path string, sv snapshot.SaveV1) {
	p := sv.Properties
	fmt.Printf("save v%d %s tick=%d long_tick=%d mode=%s lifetime=%s\n",
		sv.Header.Version, filepath.Base(path), sv.Header.Tick, sv.LongTick, sv.Mode, sv.Header.Lifetime)
	fmt.Printf("  age=%d/%d days money=%.1f mana_unlocked=%v\n",
		sv.Character.AgeDays, sv.Character.LifespanDays, sv.Character.Money, sv.Character.ManaUnlocked)
	fmt.Printf("  open_apprenticeships=%d completed=%v\n", p.OpenApprenticeships, p.CompletedApprenticeships)
	fmt.Printf("  unlocked=%v\n", p.UnlockedActivities)
	if p.SpiritActivity != nil {
		fmt.Printf("  spirit=%s\n", *p.SpiritActivity)
	}
	fmt.Printf("  auto_restart=%v pause_on_death=%v\n", p.AutoRestart, p.PauseOnDeath)
	for i, e := range p.ActivityLoop {
		fmt.Printf("  loop[%d] %s x%d\n", i, e.Activity, e.RepeatTimes)
	}
	if len(sv.Inventory) > 0 {
		fmt.Printf("  inventory=%d items\n", len(sv.Inventory))
	}
	for trial, n := range sv.Trials {
		fmt.Printf("  trial %s=%d\n", trial, n)
	}
}

func printIndex(idx *indexdb.SQLiteIndex, limit int) error {
	lives, err := idx.Lifetimes()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nLIFETIME\tMODE\tSTARTED\tENDED\tCOMPLETED")
	for _, l := range lives {
		ended := "-"
		if l.EndedTick.Valid {
			ended = fmt.Sprint(l.EndedTick.Int64)
		}
		done, err := idx.CompletedApprenticeships(l.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.ID, l.Mode, l.StartedTick, ended, strings.Join(done, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rows, err := idx.RecentAudit(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "\nSEQ\tTICK\tACTION\tACTIVITY\tLEVEL\tREASON")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%s\n", r.Seq, r.Tick, r.Action, r.Activity, r.Level, r.Reason)
	}
	return tw.Flush()
}
