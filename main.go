package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge/cache"
	"concierge/config"
	"concierge/controllers"
	dbpkg "concierge/db"
	"concierge/replies"
	"concierge/router"
	"concierge/session"
	"concierge/tools"
	"concierge/workers"

	"github.com/gin-gonic/gin"
)

// =====================
// ENV
// =====================
//
// Server
// - CONFIG_PATH                   (optional json/yaml file, read before the env)
// - PORT                          (default 8080)
// - LOG_PATH                      (optional, logs are also written there)
// - ADMIN_TOKEN                   (bearer for /admin, admin is off without it)
// - PUBLIC_BASE_URL               (used to build /img proxy links)
//
// Ledger
// - DATABASE                      (sqlite3 or postgres)
// - DB_PATH / DB_HOST / DB_PORT / DB_USER / DB_NAME / DB_PASS
//
// Caches
// - REDIS_URL                     (optional, in-memory stores otherwise)
// - CACHE_MAX_ENTRIES
//
// Meta Graph API
// - META_APP_SECRET               (validates X-Hub-Signature-256)
// - WEBHOOK_VERIFY_TOKEN
// - PAGE_ID / PAGE_ACCESS_TOKEN
// - IG_USER_ID / IG_ACCESS_TOKEN
//
// OpenAI
// - OPENAI_API_KEY
// - OPENAI_MODEL / OPENAI_TRANSCRIBE_MODEL
//
// Google Maps
// - MAPS_API_KEY
//
// =====================

func main() {
	configuration, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if configuration.LogPath != "" {
		f, err := os.OpenFile(configuration.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("log file: %v", err)
		}
		defer f.Close()
		out := io.MultiWriter(os.Stdout, f)
		log.SetOutput(out)
		gin.DefaultWriter = out
	}

	for _, w := range configuration.Warnings() {
		log.Printf("WARNING: %s", w)
	}

	dbpkg.SetConfigurations(configuration)
	database, err := dbpkg.Connect()
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := session.NewMemoryStores(configuration.CacheMaxEntries)
	var geoStore cache.Store = cache.NewMemoryStore(configuration.CacheMaxEntries)
	if configuration.RedisURL != "" {
		rdb, err := cache.Dial(ctx, configuration.RedisURL)
		if err != nil {
			log.Printf("redis unavailable, using in-memory caches: %v", err)
		} else {
			defer rdb.Close()
			stores = session.Stores{
				Dedupe:  cache.NewRedisStore(rdb, "dedupe:"),
				Sticky:  cache.NewRedisStore(rdb, "sticky:"),
				History: cache.NewRedisStore(rdb, "history:"),
				Posts:   cache.NewRedisStore(rdb, "post:"),
			}
			geoStore = cache.NewRedisStore(rdb, "maps:")
			log.Println("Using redis caches")
		}
	}
	sessions := session.NewManager(stores)

	graph := tools.NewGraphClient(
		configuration.Meta.BaseURL,
		configuration.Meta.ApiVersion,
		configuration.Meta.PageID,
		configuration.Meta.PageAccessToken,
		configuration.Meta.IGUserID,
		configuration.Meta.IGAccessToken,
	)

	brain, err := tools.NewOpenAIClient(
		configuration.OpenAI.APIKey,
		configuration.OpenAI.BaseURL,
		configuration.OpenAI.Model,
		configuration.OpenAI.TranscribeModel,
		replies.SystemPrompt(configuration.Business),
		configuration.OpenAI.RateRPS,
	)
	if err != nil {
		log.Fatalf("openai: %v", err)
	}

	var geo replies.Geo
	if maps := tools.NewGeoClient(configuration.Maps.APIKey, configuration.Maps.BaseURL, geoStore); maps.Enabled() {
		geo = maps
	}

	composer := replies.NewComposer(configuration.Business, brain, geo, graph, sessions)
	ledger := dbpkg.NewLedger(database)

	processor := &workers.Processor{
		DB:          database,
		Config:      configuration,
		Composer:    composer,
		Sender:      graph,
		Transcriber: brain,
		Sessions:    sessions,
	}
	processor.Start(ctx)

	app := &controllers.App{
		Config:   configuration,
		Sessions: sessions,
		Queue:    ledger,
		Stats:    ledger,
		Graph:    graph,
	}

	r := gin.New()
	router.Initialize(r, app, database)

	srv := &http.Server{
		Addr:              ":" + configuration.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Printf("%s concierge listening on :%s", configuration.Business.Name, configuration.ApiPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
