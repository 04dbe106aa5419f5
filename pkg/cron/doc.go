// Package cron runs in-process jobs on standard cron expressions.
//
// Jobs live in memory only. Each job is armed with a timer for its next
// activation, and a job never overlaps itself: a run that is still in
// progress when its timer fires is skipped.
//
// Usage:
//
//	svc := cron.NewService(cron.ServiceOptions{})
//	defer svc.Stop()
//	svc.AddJob(cron.AddParams{Name: "daily-note", Schedule: "0 0 * * *", Run: ensureDaily})
package cron
