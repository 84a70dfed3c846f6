// Package queue carries audit entries over RabbitMQ: the API publishes to
// the cinema.audit queue and a background consumer writes them to the log
// files.
package queue

import "github.com/iliyamo/cinema-management-api/internal/audit"

// AuditQueueName is the durable queue shared by publisher and consumer.
const AuditQueueName = "cinema.audit"

// AuditEvent is the message body published for every audit entry.  Host
// identifies the API instance that produced it.
type AuditEvent struct {
	Entry       audit.Entry `json:"entry"`
	Host        string      `json:"host"`
	PublishedAt string      `json:"published_at"`
}
