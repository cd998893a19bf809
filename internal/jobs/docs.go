// Package jobs provides scheduled background tasks for the order service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to handle periodic maintenance the order lifecycle requires.
//
// # Available Jobs
//
// 1. StaleOrderJob - Runs every minute to cancel orders stuck in "processing"
// past the configured threshold
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	// Create job manager with required handlers
//	jobManager := jobs.NewJobManager(staleQueryHandler, updateStatusHandler, threshold, logger)
//
//	// Start all jobs
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	// Stop all jobs when shutting down
//	defer jobManager.StopAll()
//
// # Error Handling
//
// The sweep treats contention, concurrent transitions and deleted orders as
// benign and re-evaluates on the next run; anything else is logged.
package jobs
