package analytics

import (
	"fmt"
	"os"
)

// NewConsumerID names this process within the consumer group.
// The name is stable across restarts on the same host and pid.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "ingest"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
