package models

// SyncContext carries the identity under which a sync pass runs. It is passed
// explicitly into the orchestrator and mappers instead of being read from a
// process-wide session singleton.
type SyncContext struct {
	CompanyID  int
	WorkerID   string
	WorkerName string
}
