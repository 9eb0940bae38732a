package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/quasilyte/gdata/v2"
	"golang.org/x/sync/errgroup"

	"cannonade/internal/game"
	"cannonade/internal/policy"
	"cannonade/internal/server"
)

// matchInterval is the breather between matches, long enough for
// spectators to read the final score.
const matchInterval = 3 * time.Second

func main() {
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		configPath = flag.String("config", "", "yaml table config, defaults when empty")
		left       = flag.String("left", "distance", "left gunner policy: "+strings.Join(policy.Names(), ", "))
		right      = flag.String("right", "quadrant", "right gunner policy: "+strings.Join(policy.Names(), ", "))
		seed       = flag.Uint64("seed", 0, "fixed match seed, 0 rolls a fresh one per match")
		matches    = flag.Int("matches", 0, "matches to play before exiting, 0 plays forever")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := game.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = game.LoadConfig(*configPath)
		if err != nil {
			slog.Error("load config", "err", err)
			os.Exit(1)
		}
	}

	store := openRecords()
	srv := server.New(*addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("spectator feed listening", "addr", *addr)
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer cancel() // done playing, bring the listener down too
		return runMatches(ctx, cfg, store, srv, *left, *right, *seed, *matches)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelTimeout()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("exit", "err", err)
		os.Exit(1)
	}
}

// runMatches plays the scheduled duels back to back on the live feed,
// folding each result into the records.
func runMatches(ctx context.Context, cfg game.Config, store *game.RecordStore, srv *server.Server, left, right string, seed uint64, matches int) error {
	for played := 0; matches == 0 || played < matches; played++ {
		matchSeed := seed
		if matchSeed == 0 {
			matchSeed = rand.Uint64()
		}

		m, err := game.NewMatch(cfg, left, right, matchSeed)
		if err != nil {
			return err
		}

		srv.SetMatch(m)
		if err := m.Run(ctx, srv.Broadcast); err != nil {
			return err
		}

		res := m.Result()
		if err := store.SaveRecord(res); err != nil {
			slog.Error("save record", "match", res.MatchID, "err", err)
		}
		if err := store.ApplyResult(res); err != nil {
			slog.Error("apply result", "match", res.MatchID, "err", err)
		}
		logStandings(store)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(matchInterval):
		}
	}
	return nil
}

// openRecords opens the persistent record store, degrading to a
// process-local one when the host has no writable data dir.
func openRecords() *game.RecordStore {
	mgr, err := gdata.Open(gdata.Config{AppName: "cannonade"})
	store := game.NewRecordStore(mgr)
	if !store.Persistent() {
		slog.Warn("no writable data dir, records held in memory", "err", err)
	}
	return store
}

func logStandings(store *game.RecordStore) {
	table, err := store.Standings()
	if err != nil {
		slog.Error("load standings", "err", err)
		return
	}

	names := make([]string, 0, len(table.Policies))
	for name := range table.Policies {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		line := table.Policies[name]
		slog.Info("standings",
			"policy", name,
			"wins", line.Wins,
			"losses", line.Losses,
			"draws", line.Draws,
			"goals", line.Goals)
	}
}
