// Package healthstore persists backend health snapshots in SQLite.
//
// The registry notifies the store on every availability change; on startup
// the registry is seeded from the stored snapshot so that a backend that was
// unhealthy before a restart is not tried first:
//
//	hs, err := healthstore.Open(cfg.Health.SnapshotPath, logger)
//	snapshot, _ := hs.Load(ctx)
//	registry.Restore(snapshot)
//	registry.OnChange(hs.Observer())
package healthstore
