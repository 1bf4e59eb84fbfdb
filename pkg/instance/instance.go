package instance

import (
	"os"

	"github.com/angelmondragon/supplyledger-backend/pkg/env"
)

const EnvWorkerID = "SUPPLYLEDGER_WORKER_ID"

// ID identifies this worker process: SUPPLYLEDGER_WORKER_ID, else the hostname.
func ID() string {
	if id := env.First("", EnvWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
