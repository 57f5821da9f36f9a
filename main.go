package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"njmart/cart"
	"njmart/catalog"
	"njmart/checkout"
	"njmart/engine"
	"njmart/metrics"
	"njmart/pay"
	"njmart/persist"
	"njmart/profile"
	"njmart/ratelim"
	"njmart/routes"
	"njmart/sheetapi"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.RequestURI,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// deliveryPolicy pulls the store's delivery settings from the sheet backend,
// falling back to the defaults when the backend is unreachable at boot.
func deliveryPolicy(sheet *sheetapi.Client) engine.DeliveryPolicy {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings, err := sheet.Settings(ctx)
	if err != nil {
		log.Warnf("could not fetch store settings, using defaults: %v", err)
		return engine.DefaultDeliveryPolicy
	}
	return engine.DeliveryPolicy{
		Threshold: settings.DeliveryThreshold,
		Charge:    settings.DeliveryCharge,
	}
}

// sessionStore prefers Redis and falls back to in-process memory so the
// storefront still works on a laptop without Redis running.
func sessionStore() persist.Store {
	rs := persist.NewRedisStore()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		log.Warnf("redis unavailable, carts will not survive restarts: %v", err)
		return persist.NewMemoryStore()
	}
	return rs
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		log.Fatal("BACKEND_URL is required (sheet backend web app URL)")
	}

	sheet := sheetapi.New(sheetapi.DefaultConfig(backendURL))
	store := sessionStore()
	upi := pay.UPIConfigFromEnv()
	rateLimiter := ratelim.NewRateLimiter()

	hub := cart.NewHub(store, sheet, deliveryPolicy(sheet))

	cartAPI := cart.NewAPI(hub)
	catalogAPI := catalog.NewAPI(sheet, store)
	checkoutAPI := checkout.NewAPI(hub, upi)
	profileAPI := profile.NewAPI(hub, sheet)

	router := httprouter.New()
	router.GET("/health", Index)
	router.Handler("GET", "/metrics", metrics.Handler())

	routes.AddAuthRoutes(router, rateLimiter)
	routes.AddCatalogRoutes(router, rateLimiter, catalogAPI)
	routes.AddCartRoutes(router, cartAPI)
	routes.AddCheckoutRoutes(router, rateLimiter, checkoutAPI, upi)
	routes.AddProfileRoutes(router, profileAPI)

	// best effort; submit still de-dups on ClientOrderID without the indexes
	func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pay.InitIdempotencyIndexes(ctx); err != nil {
			log.Warnf("idempotency indexes: %v", err)
		}
	}()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server stopped cleanly")
}
