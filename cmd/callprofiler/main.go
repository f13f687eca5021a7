package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/CAFxX/httpcompression"
	"github.com/dgraph-io/badger/v4"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/callprofiler/callprofiler/internal/httputil"
	"github.com/callprofiler/callprofiler/internal/logutil"
	"github.com/callprofiler/callprofiler/internal/storageprovider"
	"github.com/callprofiler/callprofiler/internal/storageutil"
)

// KafkaWriter is the part of kafka.Writer the service uses, an interface so
// tests can swap in a mock.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type environment struct {
	config ServiceConfig

	storage         storageutil.ObjectHandler
	gcs             *storage.Client
	badger          *badger.DB
	functionsWriter KafkaWriter
}

var release string

func newEnvironment() (*environment, error) {
	var e environment
	if err := cleanenv.ReadEnv(&e.config); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if e.config.ReportsBucket != "" {
		var err error
		e.gcs, err = storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		e.storage = &storageprovider.Gcs{
			BucketHandle: e.gcs.Bucket(e.config.ReportsBucket),
		}
	} else {
		db, err := badger.Open(badger.DefaultOptions(e.config.BadgerPath))
		if err != nil {
			return nil, err
		}
		e.badger = db
		e.storage = &storageprovider.Badger{DB: db}
	}

	e.functionsWriter = &kafka.Writer{
		Addr:         kafka.TCP(e.config.FunctionsKafkaBrokers...),
		Async:        true,
		Balancer:     kafka.CRC32Balancer{},
		BatchSize:    100,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		Topic:        e.config.FunctionsKafkaTopic,
		WriteTimeout: 3 * time.Second,
	}

	return &e, nil
}

func (e *environment) shutdown() {
	if err := e.functionsWriter.Close(); err != nil {
		sentry.CaptureException(err)
	}
	if e.gcs != nil {
		if err := e.gcs.Close(); err != nil {
			sentry.CaptureException(err)
		}
	}
	if e.badger != nil {
		if err := e.badger.Close(); err != nil {
			sentry.CaptureException(err)
		}
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/traces", e.postTrace},
		{http.MethodGet, "/organizations/:organization_id/projects/:project_id/traces/:trace_id", e.getReport},
		{http.MethodGet, "/organizations/:organization_id/projects/:project_id/traces/:trace_id/flamegraph", e.getFlamegraph},
		{http.MethodGet, "/organizations/:organization_id/projects/:project_id/traces/:trace_id/report.html", e.getReportHTML},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	return router, nil
}

func main() {
	logutil.ConfigureLogger()

	env, err := newEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up environment")
	}

	err = sentry.Init(sentry.ClientOptions{
		BeforeSend:       httputil.SetHTTPStatusCodeTag,
		Dsn:              env.config.SentryDSN,
		EnableTracing:    true,
		Environment:      env.config.Environment,
		Release:          release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	router, err := env.newRouter()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    ":" + strconv.Itoa(env.config.Port),
		Handler: sentryhttp.New(sentryhttp.Options{}).Handle(router),
	}

	waitForShutdown := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	// Shutdown the rest of the environment after the HTTP connections are closed
	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
