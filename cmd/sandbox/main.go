package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/config"
	"github.com/psilLang/caos/pkg/sandbox"
	"github.com/psilLang/caos/pkg/store"
)

type timePoint struct {
	tick      int
	alive     int
	food      int
	delivered int // cumulative
	faults    int // cumulative
	avgEnergy int
	eaten     int // total across alive agents
}

func main() {
	configPath := flag.String("config", "", "path to caos.toml")
	worldSize := flag.Int("world", 0, "world size (NxN), 0=from config")
	ticks := flag.Int("ticks", 0, "number of ticks to simulate, 0=from config")
	quota := flag.Int("quota", 0, "instructions per agent per tick, 0=from config")
	seed := flag.Int64("seed", 0, "random seed, 0=from config")
	dbPath := flag.String("db", "", "load event scripts from this database before installing files")
	verbose := flag.Bool("verbose", false, "verbose output")
	reportEvery := flag.Int("report-every", 100, "ticks between status lines when verbose")
	snapEvery := flag.Int("snap-every", 0, "print spatial snapshot every N ticks (0=off)")
	timelineEvery := flag.Int("timeline", 0, "sample stats every N ticks for sparkline chart (0=auto ~80 cols)")
	csvOut := flag.Bool("csv", false, "output timeline as CSV to stdout")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = c
	}
	if *worldSize > 0 {
		cfg.World.Size = *worldSize
	}
	if *ticks > 0 {
		cfg.World.Ticks = *ticks
	}
	if *quota > 0 {
		cfg.VM.Quota = *quota
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}

	lvl, err := cfg.LogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		lvl = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	table, err := cfg.Strings()
	if err != nil {
		log.Fatal().Err(err).Msg("loading catalog")
	}
	lang := sandbox.NewLanguage(caos.WithCatalog(table))

	rng := rand.New(rand.NewSource(cfg.World.Seed))
	ws := cfg.World.Size
	w := sandbox.NewWorld(ws, rng)
	w.Strings = table

	// Script output goes to stdout unless stdout carries the CSV
	var out io.Writer = os.Stdout
	if *csvOut {
		out = io.Discard
	}
	sched := sandbox.NewScheduler(w, lang, cfg.VM.Quota, out)
	sched.ImmediateQuota = cfg.VM.ImmediateQuota
	sched.Log = log

	if *dbPath != "" {
		db, err := store.Open(*dbPath, lang.Recompiler())
		if err != nil {
			log.Fatal().Err(err).Msg("opening database")
		}
		units, err := db.LoadAll()
		db.Close()
		if err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("loading scripts")
		}
		if err := sched.Scripts.InstallAll(units); err != nil {
			log.Fatal().Err(err).Msg("installing stored scripts")
		}
	}

	files := append(append([]string(nil), cfg.World.Scripts...), flag.Args()...)
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sandbox [flags] script.cos...")
		flag.PrintDefaults()
		os.Exit(2)
	}
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			log.Fatal().Err(err).Msg("reading script")
		}
		file, err := lang.CompileFile(string(data))
		if err != nil {
			log.Fatal().Err(err).Str("file", name).Msg("compile error")
		}
		if err := sched.InstallFile(file); err != nil {
			log.Fatal().Err(err).Str("file", name).Msg("install failed")
		}
	}
	if cfg.World.TimerRate > 0 {
		for _, a := range w.Agents {
			if a.TimerRate == 0 {
				a.TimerRate = cfg.World.TimerRate
			}
		}
	}

	// Seed some food
	for i := 0; i < ws; i++ {
		x := rng.Intn(ws)
		y := rng.Intn(ws)
		if w.TileAt(x, y).Type() == sandbox.TileEmpty && w.OccAt(x, y) == 0 {
			w.SetTile(x, y, sandbox.MakeTile(sandbox.TileFood))
		}
	}

	// Timeline sampling interval
	tlEvery := *timelineEvery
	if tlEvery <= 0 {
		tlEvery = cfg.World.Ticks / 80
		if tlEvery < 1 {
			tlEvery = 1
		}
	}
	var timeline []timePoint

	for tick := 0; tick < cfg.World.Ticks; tick++ {
		sched.Tick()

		if tick%tlEvery == 0 {
			timeline = append(timeline, sampleStats(w, sched, tick))
		}
		if *verbose && *reportEvery > 0 && tick%*reportEvery == 0 {
			printStatus(w, sched)
		}
		if *snapEvery > 0 && tick > 0 && tick%*snapEvery == 0 {
			printSnapshot(w, tick)
		}

		// Bail if everyone died
		if len(w.Agents) == 0 {
			fmt.Fprintf(os.Stderr, "Population extinct at tick %d\n", tick)
			break
		}
	}

	st := sched.Stats()
	fmt.Fprintf(os.Stderr, "\n=== Final Stats (tick %d, run %s) ===\n", st.Tick, sched.RunID)
	fmt.Fprintf(os.Stderr, "alive=%d food_on_map=%d total_food_spawned=%d scripts=%d delivered=%d pending=%d faults=%d\n",
		st.Agents, st.Food, w.FoodSpawned, st.Scripts, st.Delivered, st.Pending, st.Faults)

	if *csvOut {
		printCSV(timeline, os.Stdout)
	} else if len(timeline) > 1 {
		printTimeline(timeline, tlEvery)
	}
}

func printStatus(w *sandbox.World, sched *sandbox.Scheduler) {
	st := sched.Stats()
	energy := 0
	for _, a := range w.Agents {
		energy += a.Energy
	}
	avg := 0
	if len(w.Agents) > 0 {
		avg = energy / len(w.Agents)
	}
	fmt.Fprintf(os.Stderr, "tick=%d alive=%d food=%d delivered=%d pending=%d faults=%d avg_energy=%d\n",
		st.Tick, st.Agents, st.Food, st.Delivered, st.Pending, st.Faults, avg)
}

func printSnapshot(w *sandbox.World, tick int) {
	fmt.Fprintf(os.Stderr, "\n--- Snapshot at tick %d ---\n", tick)

	fmt.Fprintf(os.Stderr, "%-6s %-11s %-5s %-5s %-6s %-5s %-5s %-5s\n",
		"ID", "Class", "X,Y", "HP", "Energy", "Age", "Eaten", "State")
	for _, a := range w.Agents {
		state := "idle"
		if ctx := a.Context(); ctx != nil && ctx.Running() {
			state = ctx.State().String()
		}
		fmt.Fprintf(os.Stderr, "%-6d %-11s %2d,%-2d %-5d %-6d %-5d %-5d %-5s\n",
			a.ID, a.Class.String(), a.X, a.Y, a.Health, a.Energy, a.Age, a.FoodEaten, state)
	}

	// Mini-map (world grid with agents marked)
	if w.Size <= 48 {
		fmt.Fprintf(os.Stderr, "\nMap (%dx%d):\n", w.Size, w.Size)
		for y := 0; y < w.Size; y++ {
			for x := 0; x < w.Size; x++ {
				switch {
				case w.OccAt(x, y) != 0:
					fmt.Fprint(os.Stderr, "@")
				case w.TileAt(x, y).Type() == sandbox.TileFood:
					fmt.Fprint(os.Stderr, "f")
				case w.TileAt(x, y).Type() == sandbox.TileWall:
					fmt.Fprint(os.Stderr, "#")
				default:
					fmt.Fprint(os.Stderr, "·")
				}
			}
			fmt.Fprintln(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "Legend: @=agent f=food #=wall ·=empty\n")
	}
}

func sampleStats(w *sandbox.World, sched *sandbox.Scheduler, tick int) timePoint {
	tp := timePoint{
		tick:      tick,
		food:      w.FoodCount(),
		delivered: sched.Delivered,
		faults:    sched.Faults,
	}
	totalEnergy := 0
	for _, a := range w.Agents {
		if !a.Alive() {
			continue
		}
		tp.alive++
		totalEnergy += a.Energy
		tp.eaten += a.FoodEaten
	}
	if tp.alive > 0 {
		tp.avgEnergy = totalEnergy / tp.alive
	}
	return tp
}

func sparkline(label string, values []int) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(values)
	if n == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-11s [%d→%d]\t", label, values[0], values[n-1])

	span := hi - lo
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = (v - lo) * (len(blocks) - 1) / span
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

func deltas(values []int) []int {
	if len(values) < 2 {
		return nil
	}
	d := make([]int, len(values)-1)
	for i := 1; i < len(values); i++ {
		d[i-1] = values[i] - values[i-1]
		if d[i-1] < 0 {
			d[i-1] = 0
		}
	}
	return d
}

func extractField(timeline []timePoint, fn func(timePoint) int) []int {
	vals := make([]int, len(timeline))
	for i, tp := range timeline {
		vals[i] = fn(tp)
	}
	return vals
}

func printTimeline(timeline []timePoint, interval int) {
	fmt.Fprintf(os.Stderr, "\n=== Timeline (sampled every %d ticks, %d points) ===\n",
		interval, len(timeline))

	type metric struct {
		label string
		fn    func(timePoint) int
		rate  bool // show delta/interval sparkline too
	}
	metrics := []metric{
		{"alive", func(tp timePoint) int { return tp.alive }, false},
		{"food", func(tp timePoint) int { return tp.food }, false},
		{"energy", func(tp timePoint) int { return tp.avgEnergy }, false},
		{"eaten", func(tp timePoint) int { return tp.eaten }, false},
		{"delivered", func(tp timePoint) int { return tp.delivered }, true},
		{"faults", func(tp timePoint) int { return tp.faults }, true},
	}

	for _, m := range metrics {
		vals := extractField(timeline, m.fn)
		fmt.Fprintln(os.Stderr, sparkline(m.label, vals))
		if m.rate {
			d := deltas(vals)
			if len(d) > 0 {
				fmt.Fprintln(os.Stderr, sparkline(m.label+"/t", d))
			}
		}
	}
}

func printCSV(timeline []timePoint, w io.Writer) {
	cw := csv.NewWriter(w)
	cw.Write([]string{"tick", "alive", "food", "avg_energy", "eaten", "delivered", "faults"})
	for _, tp := range timeline {
		cw.Write([]string{
			strconv.Itoa(tp.tick),
			strconv.Itoa(tp.alive),
			strconv.Itoa(tp.food),
			strconv.Itoa(tp.avgEnergy),
			strconv.Itoa(tp.eaten),
			strconv.Itoa(tp.delivered),
			strconv.Itoa(tp.faults),
		})
	}
	cw.Flush()
}
