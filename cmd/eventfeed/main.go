package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"eventfeed/internal/capture"
	"eventfeed/internal/config"
	"eventfeed/internal/feed"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/metrics"
	"eventfeed/internal/opener"
	"eventfeed/internal/table"
	"eventfeed/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	signUpKey  string
	width      int
}

func main() {
	appLog.Info("eventfeed starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.Level(conf.LogLevel))

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if !conf.Table.HasToken() {
		appLog.Warn("no table API token configured; the feed will report it", "env", config.TokenEnv)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Location().String(),
		"timeout_seconds", conf.Table.TimeoutSeconds,
		"capture_schedule", conf.Capture.Schedule,
		"basic_auth", conf.BasicAuth != nil,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	m := metrics.New()
	client := table.NewClient(table.Options{
		URL:     conf.Table.URL,
		Token:   conf.Table.Token,
		Timeout: conf.Table.Timeout(),
		Metrics: m,
	})

	if flags.once {
		os.Exit(runOnce(ctx, conf, client, flags))
	}

	if err := serve(ctx, conf, client, m); err != nil {
		appLog.Error("server failed", err)
		os.Exit(1)
	}
	appLog.Info("eventfeed exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventfeed/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch once, print the feed to stdout and exit")
	flag.StringVar(&cfg.signUpKey, "signup", "", "With -once: open the sign-up link of the event with this key")
	flag.IntVar(&cfg.width, "width", 72, "Terminal width used by -once")

	flag.Parse()

	return cfg
}

// runOnce mounts one screen, prints it and tears it down. The exit code is
// 1 when the fetch failed.
func runOnce(ctx context.Context, conf *config.Config, client *table.Client, flags flagConfig) int {
	screen := feed.NewScreen(client, opener.NewBrowser(), conf.Location())
	screen.Activate(ctx)
	defer screen.Deactivate()

	st := screen.Wait(ctx)
	if err := feed.RenderText(os.Stdout, st, screen.Cards(), flags.width); err != nil {
		appLog.Error("failed to write feed", err)
		return 1
	}

	if flags.signUpKey != "" {
		screen.SignUp(ctx, flags.signUpKey)
	}

	if st.Phase != feed.PhaseLoaded {
		return 1
	}
	return 0
}

// serve runs the HTTP server and the snapshot scheduler until ctx is done.
func serve(ctx context.Context, conf *config.Config, client *table.Client, m *metrics.Metrics) error {
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, client, m).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	scheduler, err := startCapture(ctx, conf)
	if err != nil {
		_ = srv.Close()
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startCapture schedules periodic PNG snapshots of the feed page. It
// returns nil when no schedule is configured.
func startCapture(ctx context.Context, conf *config.Config) (*cron.Cron, error) {
	if conf.Capture.Schedule == "" {
		return nil, nil
	}

	target := feedURL(conf)
	opts := capture.Options{
		URL:        target,
		OutputPath: conf.Capture.OutputPath,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		// The page waits for one table fetch, so leave room for it.
		Timeout: conf.Table.Timeout() + 15*time.Second,
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(conf.Capture.Schedule, func() {
		start := time.Now()
		if err := capture.FeedPNG(ctx, opts); err != nil {
			appLog.Error("feed capture failed", err, "output", opts.OutputPath)
			return
		}
		appLog.Info("feed captured", "output", opts.OutputPath, "took", time.Since(start).String())
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	appLog.Info("feed capture scheduled", "schedule", conf.Capture.Schedule, "output", opts.OutputPath)
	return c, nil
}

// feedURL is the loopback URL of the feed page served by this process.
func feedURL(conf *config.Config) string {
	host, port, err := net.SplitHostPort(conf.Listen)
	if err != nil {
		host, port = "127.0.0.1", "8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/"}
	if ba := conf.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		u.User = url.UserPassword(ba.Username, ba.Password)
	}
	return u.String()
}
