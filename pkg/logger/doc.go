// Package logger builds the process-wide *slog.Logger.
//
// Output format and level follow the deployment environment (text/debug in
// development, JSON/info elsewhere) and can be overridden with LOG_LEVEL and
// LOG_FORMAT. Request-scoped attributes such as the request id are attached
// through ContextExtractor functions, so call sites only need the *Context
// logging methods:
//
//	log := logger.New(
//		logger.WithEnvironment("production", "backdrop"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.ErrorContext(ctx, "checkout failed", logger.UserID(uid), logger.Error(err))
//
// The attribute helpers (Error, UserID, CustomerID, ...) return an empty
// slog.Attr for empty input, which slog drops.
package logger
