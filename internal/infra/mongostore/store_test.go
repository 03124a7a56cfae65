package mongostore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

func TestSupportsTransactions(t *testing.T) {
	tests := []struct {
		name  string
		hello bson.M
		want  bool
	}{
		{"replica set member", bson.M{"isWritablePrimary": true, "setName": "rs0"}, true},
		{"mongos", bson.M{"isWritablePrimary": true, "msg": "isdbgrid"}, true},
		{"standalone", bson.M{"isWritablePrimary": true}, false},
		{"empty set name", bson.M{"setName": ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := supportsTransactions(tt.hello); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestConnect_InvalidURI(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-mongo-uri", "phuket", time.Second, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for an invalid URI")
	}
}

// unreachableStore points at a port nothing listens on, with a short server
// selection timeout so every operation fails fast.
func unreachableStore(t *testing.T) *Store {
	t.Helper()
	client, err := mongo.Connect(options.Client().
		ApplyURI("mongodb://127.0.0.1:1/").
		SetServerSelectionTimeout(50 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return &Store{
		client:       client,
		db:           client.Database("phuket"),
		pollInterval: 10 * time.Millisecond,
		logger:       zap.NewNop(),
	}
}

func TestWatch_ReportsErrorsAndFallsBackToPolling(t *testing.T) {
	s := unreachableStore(t)

	var mu sync.Mutex
	reloads := 0
	errs := make(chan error, 16)

	cancel := s.watch(context.Background(), collProperties, func(context.Context) error {
		mu.Lock()
		reloads++
		mu.Unlock()
		return errors.New("server down")
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	// The first error comes from the initial load, later ones from polling
	// once the change stream could not be opened.
	deadline := time.After(5 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-errs:
		case <-deadline:
			t.Fatalf("expected repeated reload errors, got %d", i)
		}
	}

	cancel()
	cancel()

	mu.Lock()
	n := reloads
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if reloads != n {
		t.Errorf("watcher kept reloading after cancel: %d -> %d", n, reloads)
	}
}

func TestWatchProperties_UnreachableServer(t *testing.T) {
	s := unreachableStore(t)

	errs := make(chan error, 4)
	cancel, err := s.WatchProperties(context.Background(), port.PropertyQuery{}, func([]domain.Property) {
		t.Error("no snapshot expected from an unreachable server")
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	select {
	case <-errs:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an error from the watcher")
	}
}
