package main

import (
	"context"
	"fmt"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	"net/http"
	"os"
	"os/signal"
	"stock-line-bot/config"
	"stock-line-bot/internal/alert"
	"stock-line-bot/internal/commands"
	"stock-line-bot/internal/database"
	"stock-line-bot/internal/digest"
	"stock-line-bot/internal/line"
	"stock-line-bot/internal/quote"
	"stock-line-bot/internal/types"
	"stock-line-bot/lib/translation"
	"strings"
	"sync"
	"syscall"
	"time"
)

const quoteCacheTTL = 30 * time.Second

type BotMetrics struct {
	CommandsProcessed prometheus.Counter
	MessagesHandled   prometheus.Counter
	AlertsFired       prometheus.Counter
	DigestsSent       prometheus.Counter
	UsersCount        prometheus.Gauge
	MessagesPerUser   *prometheus.CounterVec
	UsersSet          map[string]bool
	Mutex             sync.Mutex
}

var (
	metrics = NewBotMetrics()
)

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	metrics := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Subsystem: "line_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Subsystem: "line_bot",
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Subsystem: "line_bot",
			Name:      "alerts_triggered",
			Help:      "The total number of price alerts pushed to users",
		}),
		DigestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Subsystem: "line_bot",
			Name:      "digests_sent",
			Help:      "The total number of weekly digests pushed to users",
		}),
		UsersCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stockbot",
			Subsystem: "line_bot",
			Name:      "users_count",
			Help:      "The current number of unique users the bot has talked to",
		}),
		MessagesPerUser: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockbot",
				Subsystem: "line_bot",
				Name:      "messages_per_user",
				Help:      "The total number of messages handled per user",
			},
			[]string{"user_id"},
		),
		UsersSet: make(map[string]bool),
	}

	prometheus.MustRegister(metrics.CommandsProcessed)
	prometheus.MustRegister(metrics.MessagesHandled)
	prometheus.MustRegister(metrics.AlertsFired)
	prometheus.MustRegister(metrics.DigestsSent)
	prometheus.MustRegister(metrics.UsersCount)
	prometheus.MustRegister(metrics.MessagesPerUser)

	return metrics
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")
	log.Debugf("Using language: %s", translation.GetLanguage())

	location, err := time.LoadLocation(config.GetString("timezone"))
	if err != nil {
		log.Warnf("⚠️ Unknown timezone %q, falling back to UTC: %v", config.GetString("timezone"), err)
		location = time.UTC
	}

	db, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	LoadMetricsFromDB(db)

	quotes := quote.NewService(quote.NewYahooProvider(), quoteCacheTTL)

	bot, err := line.NewBot(line.BotConfig{
		ChannelSecret: config.GetString("line_channel_secret"),
		ChannelToken:  config.GetString("line_channel_token"),
		Debug:         config.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	composer := digest.NewComposer(db, quotes, location)

	dispatcher := commands.NewDispatcher(db, quotes, composer, location)
	dispatcher.OnCommand = func(commands.Verb) {
		metrics.CommandsProcessed.Inc()
	}

	alerts := alert.NewService(db, quotes, bot,
		config.GetDuration("alert_interval"),
		alert.ParseRepeatPolicy(config.GetString("alert_repeat")))
	alerts.OnFired = func(types.AlertRecord) {
		metrics.AlertsFired.Inc()
	}

	scheduler := digest.NewScheduler(db, composer, bot, location,
		time.Weekday(config.GetInt("digest_weekday")),
		config.GetInt("digest_hour"))
	scheduler.OnSent = func(string) {
		metrics.DigestsSent.Inc()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alerts.Start(ctx)
	scheduler.Start(ctx)

	go saveMetricsLoop(ctx, db)

	go func() {
		if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics and health server failed: %v", err)
		}
	}()

	handler := line.NewHandler(bot, dispatcher)
	handler.OnMessage = func(userID string) {
		metrics.MessagesHandled.Inc()
		if userID == "" {
			return
		}
		updateUsersSet(userID)
		metrics.MessagesPerUser.WithLabelValues(userID).Inc()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", handler.Callback)
	mux.HandleFunc("/health", healthCheckHandler)
	mux.HandleFunc("/", handler.Status)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.GetInt("port")),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🚀 Webhook server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Webhook server shutdown error: %v", err)
		}
	case err := <-errCh:
		log.Fatalf("Webhook server failed: %v", err)
	}

	SaveMetricsToDB(db)
	log.Println("Metrics saved, shutting down...")
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting LINE bot...")
}

func saveMetricsLoop(ctx context.Context, db *database.DB) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			SaveMetricsToDB(db)
		}
	}
}

func updateUsersSet(userID string) {
	metrics.Mutex.Lock()
	defer metrics.Mutex.Unlock()

	if _, exists := metrics.UsersSet[userID]; !exists {
		metrics.UsersSet[userID] = true
		metrics.UsersCount.Set(float64(len(metrics.UsersSet)))
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func LoadMetricsFromDB(db *database.DB) {
	metrics.Mutex.Lock()
	defer metrics.Mutex.Unlock()

	// Load non-labeled metrics
	commandsProcessed, _ := db.GetMetric("commands_processed")
	messagesHandled, _ := db.GetMetric("messages_handled")
	alertsFired, _ := db.GetMetric("alerts_triggered")
	digestsSent, _ := db.GetMetric("digests_sent")
	usersCount, _ := db.GetMetric("users_count")

	metrics.CommandsProcessed.Add(commandsProcessed)
	metrics.MessagesHandled.Add(messagesHandled)
	metrics.AlertsFired.Add(alertsFired)
	metrics.DigestsSent.Add(digestsSent)
	metrics.UsersCount.Set(usersCount)

	// Load labeled metrics
	loadLabeledMetrics(db, "messages_per_user", func(_, userID string, value float64) {
		metrics.MessagesPerUser.WithLabelValues(userID).Add(value)
		metrics.UsersSet[userID] = true
	})

	log.Println("Metrics loaded from database.")
}

func loadLabeledMetrics(db *database.DB, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, _ := db.GetMetricsWithLabels(metricName)
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

func SaveMetricsToDB(db *database.DB) {
	metrics.Mutex.Lock()
	defer metrics.Mutex.Unlock()

	// Save non-labeled metrics
	db.SaveMetric("commands_processed", "", "", GetMetricValue(metrics.CommandsProcessed))
	db.SaveMetric("messages_handled", "", "", GetMetricValue(metrics.MessagesHandled))
	db.SaveMetric("alerts_triggered", "", "", GetMetricValue(metrics.AlertsFired))
	db.SaveMetric("digests_sent", "", "", GetMetricValue(metrics.DigestsSent))
	db.SaveMetric("users_count", "", "", float64(len(metrics.UsersSet)))

	// Save labeled metrics: messages_per_user
	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		metrics.MessagesPerUser.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read MessagesPerUser metric: %v", err)
			continue
		}
		var userID string
		for _, label := range metricProto.Label {
			if label.GetName() == "user_id" {
				userID = label.GetValue()
			}
		}
		db.SaveMetric("messages_per_user", "user_id", userID, metricProto.Counter.GetValue())
	}

	log.Println("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
