package scheduler

// Package scheduler owns the two recurring triggers of the market monitor:
// - the check trigger, firing every CHECK_INTERVAL seconds
// - the daily digest trigger, firing once per calendar day at the configured
//   local time in the market timezone
//
// The digest trigger can be replaced at runtime; replacement retracts the
// armed trigger and arms the new one under a single lock so that no two
// digest triggers are ever live at once.
//
// The implementation lives in jobs.go.
