package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"peerscout/internal/cmdlog"
	"peerscout/internal/config"
	"peerscout/internal/jobs"
	"peerscout/internal/metrics"
	"peerscout/internal/model"
	"peerscout/internal/peertube"
	"peerscout/internal/resolve"
	"peerscout/internal/store"
	"peerscout/internal/theme"
	"peerscout/internal/track"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "track":
		cmdTrack()
	case "resolve":
		cmdResolve()
	case "discover":
		cmdDiscover()
	case "refresh":
		cmdRefresh()
	case "recommend":
		cmdRecommend()
	case "history":
		cmdHistory()
	case "export":
		cmdExport()
	case "import":
		cmdImport()
	case "clear":
		cmdClear()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: peerscout <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./peerscout.yaml")
	fmt.Println("  track       Track a video view from player samples on stdin")
	fmt.Println("  resolve     Resolve metadata for one video identifier")
	fmt.Println("  discover    Crawl configured instances for new videos")
	fmt.Println("  refresh     Rebuild the profile and the ranked list")
	fmt.Println("  recommend   Print the current ranked recommendations")
	fmt.Println("  history     Show stored watch sessions")
	fmt.Println("  export      Write history and metadata to a JSON file")
	fmt.Println("  import      Merge a previously exported JSON file")
	fmt.Println("  clear       Drop all stored state")
}

func loadAll(cfgPath string) (config.Config, *store.DB, error) {
	cfg, err := config.Load(cfgPath)
	if os.IsNotExist(err) {
		cfg = config.Default()
		cfg.ResolveEnv()
		err = nil
	}
	if err != nil {
		return cfg, nil, err
	}
	metrics.StartServer(cfg.Metrics.Addr)
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./peerscout.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdTrack() {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	watchURL := fs.String("url", "", "watch URL of the open video")
	_ = fs.Parse(os.Args[2:])
	if *watchURL == "" {
		fmt.Println("error: -url is required")
		os.Exit(1)
	}
	err := cmdlog.Run("track", func() error {
		cfg, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := peertube.NewHTTPClient()
		videoID := model.VideoIDFromURL(*watchURL)
		liveCheck := func(ctx context.Context) (bool, error) {
			if videoID == "" {
				return false, fmt.Errorf("no video id in %s", *watchURL)
			}
			// a fresh resolver per check: its transient-failure memo is
			// pass-scoped, and each re-check is its own pass
			r := resolve.New(client, db, cfg.Sources.Preferred, cfg.Sources.Instances)
			m, err := r.Resolve(ctx, videoID, *watchURL)
			if err != nil {
				return false, err
			}
			if m.Unavailable {
				return false, fmt.Errorf("no authoritative record for %s", videoID)
			}
			return client.IsLive(ctx, m.SourceInstance, m.ShortUUID)
		}

		var prior *model.WatchSession
		if s, err := db.GetSession(ctx, *watchURL); err == nil {
			prior = &s
		}
		tr := track.New(cfg.Tracking, *watchURL, prior, liveCheck)
		player := newStdinPlayer(os.Stdin)
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		player.Start(runCtx)
		go func() {
			// bridge hang-up ends the view
			<-player.Done()
			cancel()
		}()
		err = track.Run(runCtx, tr, player, db)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	id := fs.String("id", "", "video identifier")
	hint := fs.String("hint", "", "watch URL whose host is tried first")
	_ = fs.Parse(os.Args[2:])
	if *id == "" {
		fmt.Println("error: -id is required")
		os.Exit(1)
	}
	err := cmdlog.Run("resolve", func() error {
		cfg, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		r := resolve.New(peertube.NewHTTPClient(), db, cfg.Sources.Preferred, cfg.Sources.Instances)
		m, err := r.Resolve(context.Background(), *id, *hint)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %q  source=%s tokens=%d unavailable=%v\n", m.ShortUUID, m.Name, m.SourceInstance, len(m.Tokens), m.Unavailable)
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	err := cmdlog.Run("discover", func() error {
		cfg, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		return jobs.RunDiscoveryOnce(context.Background(), db, peertube.NewHTTPClient(), cfg)
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdRefresh() {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	withDiscover := fs.Bool("discover", false, "crawl instances before ranking")
	loop := fs.Bool("loop", false, "keep refreshing on an interval")
	interval := fs.Duration("interval", time.Hour, "refresh interval when looping")
	_ = fs.Parse(os.Args[2:])
	err := cmdlog.Run("refresh", func() error {
		cfg, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		client := peertube.NewHTTPClient()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if *withDiscover {
			if err := jobs.RunDiscoveryOnce(ctx, db, client, cfg); err != nil {
				return err
			}
		}
		if *loop {
			err := jobs.RunRefreshLoop(ctx, db, client, cfg, *interval)
			if err == context.Canceled {
				return nil
			}
			return err
		}
		return jobs.RunRefreshOnce(ctx, db, client, cfg)
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	by := fs.String("by", "time", "primary score: time or like")
	limit := fs.Int("limit", 20, "rows to print")
	_ = fs.Parse(os.Args[2:])
	err := cmdlog.Run("recommend", func() error {
		cfg, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		ctx := context.Background()
		results, at, err := db.LoadRanking(ctx)
		if err != nil {
			// no cached list yet: compute one now
			if err := jobs.RunRefreshOnce(ctx, db, peertube.NewHTTPClient(), cfg); err != nil {
				return err
			}
			if results, at, err = db.LoadRanking(ctx); err != nil {
				return err
			}
		}
		if *by == "like" {
			results = resortByLike(results)
		}
		fmt.Printf("Ranked %s (by %s similarity):\n", at.Format(time.RFC3339), *by)
		for i := 0; i < len(results) && i < *limit; i++ {
			r := results[i]
			mark := " "
			if r.Seen {
				mark = "*"
			}
			fmt.Printf("%s time=%.3f like=%.3f %s\n", mark, r.TimeSimilarity, r.LikeSimilarity, r.URL)
			for _, inst := range cfg.Sources.Preferred {
				fmt.Printf("    %s/w/%s\n", inst, r.ShortUUID)
			}
		}
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

func resortByLike(results []model.SimilarityResult) []model.SimilarityResult {
	out := make([]model.SimilarityResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LikeSimilarity > out[j].LikeSimilarity
	})
	return out
}

func cmdHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	err := cmdlog.Run("history", func() error {
		_, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		sessions, err := db.ListSessions(context.Background())
		if err != nil {
			return err
		}
		for _, s := range sessions {
			if s.IsLive {
				fmt.Printf("LIVE %7.0fs  %s  %q\n", s.WatchedLiveSeconds, s.URL, s.Title)
				continue
			}
			fmt.Printf("%5.1f%% %6.0fs  %s  %q\n", s.PercentWatched, s.OverlapWatchTime, s.URL, s.Title)
		}
		fmt.Printf("%d sessions\n", len(sessions))
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	out := fs.String("out", "./peerscout_export.json", "output file")
	_ = fs.Parse(os.Args[2:])
	err := cmdlog.Run("export", func() error {
		_, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		doc, err := db.Export(context.Background())
		if err != nil {
			return err
		}
		if err := writeJSONFile(*out, doc); err != nil {
			return err
		}
		fmt.Println("Exported to:", *out)
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	in := fs.String("in", "", "input file")
	_ = fs.Parse(os.Args[2:])
	if *in == "" {
		fmt.Println("error: -in is required")
		os.Exit(1)
	}
	err := cmdlog.Run("import", func() error {
		_, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		var doc store.Document
		if err := readJSONFile(*in, &doc); err != nil {
			return err
		}
		if err := db.Import(context.Background(), doc); err != nil {
			return err
		}
		fmt.Printf("Imported %d sessions, %d metadata records\n", len(doc.Sessions), len(doc.Metadata))
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

func cmdClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	cfgPath := fs.String("config", "./peerscout.yaml", "config path")
	yes := fs.Bool("yes", false, "confirm deletion")
	_ = fs.Parse(os.Args[2:])
	if !*yes {
		fmt.Println("refusing to clear without -yes")
		os.Exit(1)
	}
	err := cmdlog.Run("clear", func() error {
		_, db, err := loadAll(*cfgPath)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Clear(context.Background())
	})
	if err != nil {
		os.Exit(1)
	}
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
