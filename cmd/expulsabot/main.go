package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atareao/expulsabot"
	"github.com/atareao/expulsabot/internal"
	"github.com/atareao/expulsabot/lib/bot"
	"github.com/atareao/expulsabot/lib/chatconfig"
	"github.com/atareao/expulsabot/lib/exempt"
	"github.com/atareao/expulsabot/lib/lifecycle"
	"github.com/atareao/expulsabot/lib/localization"
	"github.com/atareao/expulsabot/lib/registry"
	"github.com/atareao/expulsabot/lib/sink"
	"github.com/atareao/expulsabot/lib/sink/matrix"
	"github.com/atareao/expulsabot/lib/sink/openobserve"
	"github.com/atareao/expulsabot/lib/store"
	_ "github.com/atareao/expulsabot/lib/store/all"
	"github.com/atareao/expulsabot/lib/transport/telegram"
)

var (
	token             = flag.String("token", "", "Telegram Bot API token")
	telegramAPIURL    = flag.String("telegram-api-url", telegram.DefaultAPIURL, "Bot API endpoint prefix, override for self-hosted gateways")
	challengeDuration = flag.Duration("challenge-duration", expulsabot.DefaultChallengeDuration, "how long a new member has to solve their challenge")
	minResponse       = flag.Duration("min-response", expulsabot.DefaultMinResponse, "answers faster than this are treated as automation")
	cleanupDelay      = flag.Duration("cleanup-delay", expulsabot.DefaultCleanupDelay, "how long prompts and notices stay in the chat before deletion")
	puzzleVariant     = flag.String("puzzle", "random", "puzzle variant to issue (category, arith, or random)")
	banBotsDirectly   = flag.Bool("ban-bots-directly", true, "ban arriving bot accounts immediately instead of challenging them")
	locale            = flag.String("locale", expulsabot.DefaultLocale, "language for chat-facing messages")

	storeBackend = flag.String("store-backend", "memory", "storage backend for per-chat settings (memory, bbolt, valkey)")
	bboltPath    = flag.String("bbolt-path", "", "path of the bbolt database when store-backend is bbolt")
	valkeyURL    = flag.String("valkey-url", "", "valkey/redis URL when store-backend is valkey")

	exemptionPolicyFname = flag.String("exemption-policy-fname", "", "full path to the exemption policy document (optional)")

	openobserveHost   = flag.String("openobserve-host", "", "if set, OpenObserve host to ship challenge outcomes to")
	openobserveStream = flag.String("openobserve-stream", "default", "OpenObserve stream name")
	openobserveToken  = flag.String("openobserve-token", "", "OpenObserve Basic auth token")

	matrixHomeserver = flag.String("matrix-homeserver", "", "if set, Matrix homeserver to post challenge outcomes to")
	matrixRoom       = flag.String("matrix-room", "", "Matrix room ID for outcome messages")
	matrixToken      = flag.String("matrix-token", "", "Matrix access token")

	metricsBind = flag.String("metrics-bind", ":9090", "network address to bind metrics to, empty disables the metrics server")
	healthcheck = flag.Bool("healthcheck", false, "run a health check against the metrics server")
	slogLevel   = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	versionFlag = flag.Bool("version", false, "print Expulsabot version")
)

func storeConfig() (string, json.RawMessage) {
	switch *storeBackend {
	case "bbolt":
		data, _ := json.Marshal(map[string]string{"path": *bboltPath})
		return "bbolt", data
	case "valkey":
		data, _ := json.Marshal(map[string]string{"url": *valkeyURL})
		return "valkey", data
	default:
		return *storeBackend, json.RawMessage(`{}`)
	}
}

func buildSinks() []sink.Interface {
	var result []sink.Interface

	if *openobserveHost != "" {
		result = append(result, openobserve.New(*openobserveHost, *openobserveStream, *openobserveToken))
	}

	if *matrixHomeserver != "" && *matrixRoom != "" {
		result = append(result, matrix.New(*matrixHomeserver, *matrixRoom, *matrixToken))
	}

	return result
}

func doHealthCheck() error {
	resp, err := http.Get("http://localhost" + *metricsBind + "/metrics")
	if err != nil {
		return fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("Expulsabot", expulsabot.Version)
		return
	}

	internal.InitSlog(*slogLevel)

	if *healthcheck {
		log.Println("running healthcheck")
		if err := doHealthCheck(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if strings.TrimSpace(*token) == "" {
		log.Fatal("no Telegram Bot API token, set TOKEN or pass -token")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, conf := storeConfig()
	factory, ok := store.Get(backend)
	if !ok {
		log.Fatalf("unknown storage backend %q, must be one of %v", backend, store.Methods())
	}

	backing, err := factory.Build(ctx, conf)
	if err != nil {
		log.Fatalf("can't build %s storage backend: %v", backend, err)
	}

	var exemptions *exempt.Policy
	if *exemptionPolicyFname != "" {
		exemptions, err = exempt.LoadFile(*exemptionPolicyFname)
		if err != nil {
			log.Fatalf("can't load exemption policy: %v", err)
		}
		slog.Info("loaded exemption policy", "fname", *exemptionPolicyFname, "rules", exemptions.Len())
	}

	localizer := localization.NewService().Localizer(*locale)
	sinks := buildSinks()

	client := telegram.New(*token, telegram.WithAPIURL(*telegramAPIURL))

	controller, err := lifecycle.New(lifecycle.Options{
		Transport:    client,
		Registry:     registry.New(),
		Sinks:        sinks,
		Variant:      *puzzleVariant,
		Duration:     *challengeDuration,
		MinResponse:  *minResponse,
		CleanupDelay: *cleanupDelay,
		Localizer:    localizer,
	})
	if err != nil {
		log.Fatalf("can't build challenge controller: %v", err)
	}

	b, err := bot.New(bot.Options{
		API:             client,
		Controller:      controller,
		ChatConfig:      chatconfig.New(backing),
		Exemptions:      exemptions,
		Sinks:           sinks,
		BanBotsDirectly: *banBotsDirectly,
		Localizer:       localizer,
	})
	if err != nil {
		log.Fatalf("can't build bot: %v", err)
	}

	wg := new(sync.WaitGroup)
	if *metricsBind != "" {
		wg.Add(1)
		go metricsServer(ctx, wg.Done)
	}

	slog.Info(
		"polling for updates",
		"version", expulsabot.Version,
		"puzzle", *puzzleVariant,
		"challenge-duration", *challengeDuration,
		"min-response", *minResponse,
		"ban-bots-directly", *banBotsDirectly,
		"store-backend", backend,
		"locale", *locale,
		"sinks", len(sinks),
	)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}

	wg.Wait()
}

func metricsServer(ctx context.Context, done func()) {
	defer done()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := http.Server{Addr: *metricsBind, Handler: mux, ErrorLog: internal.GetFilteredHTTPLogger()}
	slog.Debug("listening for metrics", "addr", *metricsBind)

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
