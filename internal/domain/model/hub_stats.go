package model

import "time"

type HubStats struct {
	ConnectedUsers  int           `json:"connectedUsers"`
	QueuedMessages  int           `json:"queuedMessages"`
	QueuedReceivers int           `json:"queuedReceivers"`
	Groups          int           `json:"groups"`
	DedupEntries    int           `json:"dedupEntries"`
	DedupResets     uint64        `json:"dedupResets"`
	KnownKeys       int           `json:"knownKeys"`
	Uptime          time.Duration `json:"uptime"`
}
