package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"couriertrack/config"
	"couriertrack/engine"
	"couriertrack/messaging"
	"couriertrack/position"
	"couriertrack/remote"
	"couriertrack/routing"
	"couriertrack/store"
	"couriertrack/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "couriertrack.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("couriertrack", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Local database (offline queue + trail)
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("couriertrack: database open (%s)", cfg.Database.Path)

	// Remote order store. Reachability is probed continuously at runtime;
	// starting offline is fine.
	remoteClient, err := remote.Open(&cfg.Remote)
	if err != nil {
		log.Fatalf("open remote order store: %v", err)
	}
	defer remoteClient.Close()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := remoteClient.Ping(pingCtx); err != nil {
		log.Printf("couriertrack: order store not reachable (%v), starting offline", err)
	} else {
		log.Printf("couriertrack: order store connected (%s:%d)", cfg.Remote.Host, cfg.Remote.Port)
	}
	pingCancel()

	// Redis route cache tier (optional)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("couriertrack: redis not available (%v), route cache is memory-only", err)
		redisClient.Close()
		redisClient = nil
	} else {
		log.Printf("couriertrack: redis connected (%s)", cfg.Redis.Address)
		defer redisClient.Close()
	}
	cancel()

	routeClient := routing.NewClient(cfg.Routing.BaseURL, cfg.Routing.Profile, cfg.Routing.Timeout)
	routes := routing.NewProvider(routeClient, redisClient)

	// Position feed (MQTT fixes or HTTP pushes)
	feed := position.NewFeed(cfg.Tracking.PositionTimeout, cfg.Tracking.PositionMaxAge)

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	var gateway *messaging.Gateway
	if err := msgClient.Connect(); err != nil {
		log.Printf("couriertrack: messaging connect failed (%v), GPS over HTTP only", err)
	} else {
		log.Printf("couriertrack: messaging connected (%s)", cfg.Messaging.Backend)
		gateway = messaging.NewGateway(msgClient, &cfg.Messaging)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Remote:     remoteClient,
		Routes:     routes,
		Feed:       feed,
		MsgClient:  msgClient,
		Gateway:    gateway,
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("couriertrack: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("couriertrack: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("couriertrack: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("couriertrack: stopped")
}
