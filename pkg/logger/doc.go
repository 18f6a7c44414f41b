// Package logger builds slog loggers with environment presets, attribute
// helpers and context extractors.
//
//	opts, err := logger.FromConfig(cfg)
//	log := logger.New(append(opts,
//		logger.WithContextExtractors(requestIDExtractor),
//	)...)
//	log.InfoContext(ctx, "subscription event applied",
//		logger.ExternalEventID(ev.ExternalEventID),
//		logger.UserID(userID),
//	)
//
// Helpers such as Error drop nil values so they can be passed unconditionally.
package logger
