package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alumninet/directory-finder/pkg/common"
	"github.com/alumninet/directory-finder/pkg/fetch"
	"github.com/alumninet/directory-finder/pkg/server"
	"github.com/alumninet/directory-finder/pkg/session"
	"github.com/alumninet/directory-finder/pkg/tracking"
)

var enableProfiling = flag.Bool("profiling", false, "enable profiling endpoints")

var upstreamUrl = os.Getenv("UPSTREAM_URL")
var rabbitUrl = os.Getenv("RABBIT_URL")
var redisUrl = os.Getenv("REDIS_URL")
var redisPassword = os.Getenv("REDIS_PASSWORD")
var tokenSecret = os.Getenv("TOKEN_SECRET")
var listenAddress = ":8080"
var debugAddress = ":8081"

func main() {
	flag.Parse()

	if upstreamUrl == "" {
		log.Fatalf("No upstream url provided")
	}

	srv := &server.WebServer{
		Upstream: fetch.NewHTTPClient(upstreamUrl, 10*time.Second),
		PageSize: 12,
		CacheTTL: 5 * time.Minute,
	}

	if tokenSecret != "" {
		srv.Sessions = session.NewManager([]byte(tokenSecret))
	} else {
		log.Println("No token secret provided, running without sessions")
	}

	var cache *server.RedisPageCache
	if redisUrl != "" {
		cache = server.NewRedisPageCache(redisUrl, redisPassword, 0)
		srv.Cache = cache
		log.Printf("Result page cache enabled, url: %s", redisUrl)
	}

	var trk *tracking.RabbitTracking
	if rabbitUrl != "" {
		var err error
		trk, err = tracking.NewRabbitTracking(rabbitUrl)
		if err != nil {
			log.Fatalf("Failed to connect tracking: %v", err)
		}
		srv.Tracking = trk
		log.Println("Search tracking enabled")
	}

	debugMux := http.NewServeMux()
	debugMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	debugMux.Handle("/metrics", promhttp.Handler())
	if *enableProfiling {
		log.Println("Profiling enabled")
		debugMux.HandleFunc("/debug/pprof/", pprof.Index)
		debugMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		debugMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		debugMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		debugMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	go func() {
		log.Printf("Starting debug server %v", debugAddress)
		log.Fatal(http.ListenAndServe(debugAddress, debugMux))
	}()

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", srv.ClientHandler()))

	timeouts := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       15 * time.Second,
		Write:      30 * time.Second,
		Idle:       60 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       5 * time.Second,
	})
	httpServer := common.NewServerWithTimeouts(&http.Server{
		Addr:    listenAddress,
		Handler: mux,
	}, timeouts)

	common.RunServerWithShutdown(httpServer, "directory gateway", timeouts.Shutdown, timeouts.Hook,
		func(ctx context.Context) error {
			if trk != nil {
				return trk.Close()
			}
			return nil
		},
		func(ctx context.Context) error {
			if cache != nil {
				cache.Close()
			}
			return nil
		},
	)
}
