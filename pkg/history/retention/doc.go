// Package retention enforces history retention.
//
// A Pruner runs in two phases: entries older than Days are deleted, then,
// if more than MaxRecords remain, the oldest are deleted until MaxRecords
// are left. A zero value disables the corresponding phase.
//
// A Scheduler runs the pruner on a standard five-field cron expression
// (github.com/robfig/cron/v3):
//
//	"0 3 * * *"    daily at 3 AM
//	"0 */6 * * *"  every 6 hours
//	"0 0 * * 0"    weekly on Sunday at midnight
package retention
