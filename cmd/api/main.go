package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gatekeeper.dev/internal/authz"
	"gatekeeper.dev/internal/httpapi"
	"gatekeeper.dev/internal/obs"
	"gatekeeper.dev/internal/store/pg"
	"gatekeeper.dev/internal/token"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GATEKEEPER_COMMIT"))

	secret := os.Getenv("GATEKEEPER_AUTH_SECRET")
	if secret == "" {
		log.Fatal("GATEKEEPER_AUTH_SECRET is required")
	}

	tokenOpts := []token.Option{}
	if raw := os.Getenv("GATEKEEPER_TOKEN_TTL"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			log.Fatalf("invalid GATEKEEPER_TOKEN_TTL %q", raw)
		}
		tokenOpts = append(tokenOpts, token.WithTTL(time.Duration(seconds)*time.Second))
	}
	tokens, err := token.NewService(secret, tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// Postgres when a DSN is given, in-memory otherwise (dev mode).
	var (
		store   authz.Store
		probe   httpapi.ReadyProbe
		cleanup func()
	)
	if dsn := os.Getenv("GATEKEEPER_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
		cleanup = func() { _ = pgStore.Close() }
	} else {
		log.Println("GATEKEEPER_PG_DSN not set, using in-memory store")
		store = authz.NewInMemory()
		cleanup = func() {}
	}

	users, err := authz.NewUserService(store, authz.NewBcryptHasher(), tokens, nil)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}
	groups, err := authz.NewPermissionGroupService(store, nil)
	if err != nil {
		log.Fatalf("group service: %v", err)
	}
	perms, err := authz.NewPermissionService(store, nil)
	if err != nil {
		log.Fatalf("permission service: %v", err)
	}
	registry, err := authz.NewServiceRegistry(store, nil)
	if err != nil {
		log.Fatalf("service registry: %v", err)
	}

	api := httpapi.New(probe, version, httpapi.Services{
		Users:    users,
		Groups:   groups,
		Perms:    perms,
		Registry: registry,
		Tokens:   tokens,
	})

	addr := os.Getenv("GATEKEEPER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gatekeeper-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	cleanup()
	log.Println("Stopped")
}
