package http

// RouterConfig holds the dependencies of the status server. Nil optional
// dependencies leave their routes unregistered.
type RouterConfig struct {
	Ledger  Pinger
	Cluster ClusterChecker
	Runs    RunStore
	Retrier BatchRetrier

	// Optional
	Refresh RefreshTrigger
	Tasks   TaskStatusReader

	Version string
}
