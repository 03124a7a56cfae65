package queue_test

import (
	"context"
	"net"
	"testing"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/queue"

	"go.uber.org/zap"
)

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestPublisher_BrokerUnavailable(t *testing.T) {
	p := queue.NewPublisher("amqp://guest:guest@"+closedAddr(t)+"/", "leads", zap.NewNop())
	defer p.Close()

	err := p.PublishLeadSubmitted(context.Background(), domain.LeadSubmittedEvent{LeadID: "lead-1"})
	if err == nil {
		t.Fatal("expected error when the broker is unreachable")
	}

	// A second attempt dials again instead of reusing a broken channel.
	if err := p.PublishLeadSubmitted(context.Background(), domain.LeadSubmittedEvent{LeadID: "lead-2"}); err == nil {
		t.Fatal("expected error on retry")
	}
}

func TestPublisher_CloseWithoutConnection(t *testing.T) {
	p := queue.NewPublisher("amqp://localhost/", "leads", zap.NewNop())
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
