// Package extension is the plugin framework of the assistant.
//
// A Plugin declares chat commands and time-based events, each bound to an
// Action. The Registry owns the set of plugins and exposes aggregated views
// over the enabled ones. The Scheduler binds those views to a chat Transport
// and to the job queue, runs every action through one envelope that delivers
// its message and chains at most one follow-up action, and rebuilds a
// plugin's triggers on demand (Reschedule).
//
// Every trigger a plugin owns is tagged with the plugin name, so cancelling a
// tag removes daily, monthly and pending one-off triggers alike.
package extension
