// Package prober runs scheduled health probes against registered backends.
//
// Probes use the robfig/cron scheduler, so the schedule accepts standard
// five-field expressions and descriptors:
//
//	health:
//	  probe_schedule: "@every 30s"   # or "*/1 * * * *", or "off"
//
// A passing probe resets a backend to healthy; a failing one counts as a
// consecutive failure.
package prober
