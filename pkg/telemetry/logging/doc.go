// Package logging configures structured logging on top of log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	slog.SetDefault(logger)
//
// Components derive their loggers with a component field:
//
//	log := slog.Default().With("component", "engine")
//
// # Context Fields
//
// Run IDs, the CLI command and the policy date travel in the context.
// Records logged through the *Context methods pick them up automatically:
//
//	ctx = logging.WithRunID(ctx, runID)
//	log.InfoContext(ctx, "evaluation completed")  // includes run_id
package logging
