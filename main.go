// Command boneless-couch is the community bot backend. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts background jobs: stream lifecycle trackers for Twitch and
//     YouTube, the ad budget scheduler, the clip poller, the problems
//     watcher, the Twitch chat bot, and an OAuth refresher for the
//     broadcaster token.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and
//     /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shassen14/boneless-couch/ads"
	"github.com/shassen14/boneless-couch/chat"
	"github.com/shassen14/boneless-couch/clips"
	"github.com/shassen14/boneless-couch/config"
	"github.com/shassen14/boneless-couch/db"
	"github.com/shassen14/boneless-couch/discord"
	"github.com/shassen14/boneless-couch/github"
	"github.com/shassen14/boneless-couch/leetcode"
	"github.com/shassen14/boneless-couch/oauth"
	"github.com/shassen14/boneless-couch/problems"
	"github.com/shassen14/boneless-couch/server"
	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
	"github.com/shassen14/boneless-couch/twitchapi"
	"github.com/shassen14/boneless-couch/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("boneless-couch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first; embedded SQL as the fallback for
	// deployments predating the schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Twitch Helix client on the app token (client-credentials). The user
	// token for starting commercials reads the stored broadcaster grant so
	// refreshes are picked up automatically.
	var helix *twitchapi.HelixClient
	if err := cfg.ValidateHelixReady(); err != nil {
		slog.Warn("helix disabled", slog.Any("err", err))
	} else {
		appTokens, err := twitchapi.NewAppTokenSource(cfg.TwitchClientID, cfg.TwitchClientSecret, "")
		if err != nil {
			slog.Error("twitch app token source", slog.Any("err", err))
			os.Exit(1)
		}
		helix = &twitchapi.HelixClient{
			AppTokenSource: appTokens,
			ClientID:       cfg.TwitchClientID,
			UserToken: func(tctx context.Context) (string, error) {
				access, _, _, _, err := db.GetOAuthToken(tctx, database, "twitch")
				return access, err
			},
		}
	}

	broadcasterID := cfg.TwitchBroadcasterID
	if broadcasterID == "" && helix != nil && cfg.TwitchChannel != "" {
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		id, err := helix.GetUserID(rctx, cfg.TwitchChannel)
		cancel()
		if err != nil {
			slog.Warn("broadcaster id lookup failed; commercials disabled", slog.Any("err", err))
		} else {
			broadcasterID = id
		}
	}

	// Keep the broadcaster token (channel:edit:commercial) warm.
	oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute,
		func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
		})

	// Discord notifier. A missing token disables announcements, not tracking.
	var notifier *discord.Notifier
	if cfg.DiscordBotToken != "" {
		dc := discord.NewClient(cfg.DiscordBotToken)
		dc.APIBase = cfg.DiscordAPIBase
		notifier = discord.NewNotifier(dc, cfg.StreamUpdatesChannelID, cfg.FallbackChannelID, cfg.TwitchChannel, cfg.YouTubeChannelID)
	} else {
		slog.Info("discord disabled (no DISCORD_BOT_TOKEN)")
	}

	// YouTube Data API: latest-upload promos and the YouTube liveness poller.
	var ytVideos *youtubeapi.VideoSource
	var ytLive *youtubeapi.LiveSource
	if cfg.YouTubeAPIKey != "" && cfg.YouTubeChannelID != "" {
		yt, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey, cfg.YouTubeChannelID)
		if err != nil {
			slog.Warn("youtube disabled", slog.Any("err", err))
		} else {
			ytVideos = &youtubeapi.VideoSource{Service: yt}
			ytLive = &youtubeapi.LiveSource{Service: yt}
		}
	} else {
		slog.Info("youtube disabled (no YT_API_KEY / YT_CHANNEL_ID)")
	}

	budget := ads.NewBudget(database, cfg.AdQuotaMinutes, cfg.AdWindow)

	// Lifecycle trackers own session existence; everything else reads the
	// sessions they maintain.
	var twitchNotifier session.Notifier
	if notifier != nil {
		twitchNotifier = notifier
	}
	if helix != nil && cfg.TwitchChannel != "" {
		tracker := &session.Tracker{
			DB:       database,
			Platform: session.PlatformTwitch,
			Checker:  &twitchapi.LiveSource{Helix: helix, Login: cfg.TwitchChannel},
			Notifier: twitchNotifier,
			Interval: cfg.LivePollInterval,
		}
		go tracker.Run(ctx)
	}
	if ytLive != nil {
		tracker := &session.Tracker{
			DB:       database,
			Platform: session.PlatformYouTube,
			Checker:  ytLive,
			Notifier: twitchNotifier,
			Interval: cfg.LivePollInterval,
		}
		go tracker.Run(ctx)
	}

	// Chat bot plus the ad scheduler that posts through it.
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Warn("chat bot disabled", slog.Any("err", err))
	} else if helix != nil {
		lc := leetcode.NewClient()
		go func() {
			rctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := lc.LoadRatings(rctx); err != nil {
				slog.Warn("zerotrac ratings unavailable", slog.Any("err", err))
			}
		}()
		gh := github.NewClient(os.Getenv("GITHUB_TOKEN"))

		var videos ads.VideoSource
		if ytVideos != nil {
			videos = ytVideos
		}
		bot := chat.NewBot(cfg, database, budget, helix, lc, gh, videos, broadcasterID)
		go func() {
			if err := bot.Run(ctx); err != nil {
				slog.Error("chat bot exited", slog.Any("err", err))
			}
		}()

		scheduler := ads.NewScheduler(database, budget, bot, helix, videos,
			broadcasterID, cfg.AdWarmup, cfg.AdTick, cfg.AdWarningDelay)
		go scheduler.Run(ctx)

		watcher := problems.NewWatcher(database, discordClient(notifier), lc,
			cfg.ProblemsForumID, cfg.LeetCodeUsername, cfg.TwitchChannel, cfg.ProblemPollInterval)
		go watcher.Run(ctx)
	}

	if helix != nil && broadcasterID != "" {
		poller := clips.NewPoller(database, helix, notifier, broadcasterID,
			cfg.ClipShowcaseChannelID, cfg.ClipPollInterval)
		go poller.Run(ctx)
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewMux(database, budget),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func discordClient(n *discord.Notifier) *discord.Client {
	if n == nil {
		return nil
	}
	return n.Client
}

// initLogging configures slog from LOG_LEVEL and LOG_FORMAT (text|json).
func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}
