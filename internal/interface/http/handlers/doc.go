// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - The battle result webhook for external judge services
//   - Reusable middleware components
//   - Admin token authentication middleware
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Battle Result Webhook
//
// External judge services report battle scores through a signed webhook.
// The handler validates the HMAC signature, decides the winner from the
// reported scores, and completes the battle:
//
//	hook := handlers.NewBattleResultWebhook(eng, secret, logger)
//	mux.Handle("POST /webhook/battles/result", hook)
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	// Admin token authentication (bcrypt-hashed token)
//	auth := handlers.NewAdminTokenAuth(tokenHash)
//	protected := auth.Middleware(adminHandler)
//
//	// Request timeout
//	withTimeout := handlers.TimeoutMiddleware(30 * time.Second)(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    auth.Middleware,
//	)
package handlers
