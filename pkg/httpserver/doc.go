// Package httpserver runs an http.Server with graceful shutdown, lifecycle
// hooks and liveness/readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run returns nil after a shutdown triggered by ctx. Listener failures are
// wrapped with ErrStart, drain failures with ErrShutdown.
package httpserver
