// Package mongostore is the MongoDB document store: properties, leads and
// admin role records, with change streams for live subscriptions.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("mongostore")

const (
	collProperties = "properties"
	collLeads      = "leads"
	collAdmins     = "admins"
)

// Store implements PropertyStore, LeadStore, LeadFeed and RoleStore.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	pollInterval time.Duration
	logger       *zap.Logger
}

// Connect dials uri, pings the primary and checks the topology. Reorder runs
// in a transaction, so a standalone server is rejected.
func Connect(ctx context.Context, uri, database string, pollInterval time.Duration, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	var hello bson.M
	if err := client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo hello: %w", err)
	}
	if !supportsTransactions(hello) {
		_ = client.Disconnect(context.Background())
		return nil, errors.New("mongo: a replica set or sharded cluster is required, standalone servers have no transactions")
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	s := &Store{
		client:       client,
		db:           client.Database(database),
		pollInterval: pollInterval,
		logger:       logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		logger.Warn("mongo: index creation failed", zap.Error(err))
	}
	return s, nil
}

// supportsTransactions reports whether the hello reply comes from a replica
// set member or a mongos router.
func supportsTransactions(hello bson.M) bool {
	if name, _ := hello["setName"].(string); name != "" {
		return true
	}
	msg, _ := hello["msg"].(string)
	return msg == "isdbgrid"
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collProperties).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "statusCategory", Value: 1}, {Key: "order", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(collLeads).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: op}
	}
	return &domain.ErrExternalService{Service: "mongo/" + op, Err: err}
}

// ============================================================
// Properties
// ============================================================

func propertyFilter(q port.PropertyQuery) bson.D {
	if q.PublishedOnly {
		return bson.D{{Key: "isPublished", Value: true}}
	}
	return bson.D{}
}

// ListProperties runs the catalog query once.
func (s *Store) ListProperties(ctx context.Context, q port.PropertyQuery) ([]domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListProperties")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "statusCategory", Value: 1}, {Key: "order", Value: 1}})
	cur, err := s.db.Collection(collProperties).Find(ctx, propertyFilter(q), opts)
	if err != nil {
		return nil, wrap("properties", err)
	}
	var docs []propertyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("properties", err)
	}
	out := make([]domain.Property, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// WatchProperties delivers the query result now and again after every change
// to the collection.
func (s *Store) WatchProperties(ctx context.Context, q port.PropertyQuery, onSnapshot port.PropertySnapshotFunc, onError port.ErrorFunc) (port.CancelFunc, error) {
	return s.watch(ctx, collProperties, func(ctx context.Context) error {
		props, err := s.ListProperties(ctx, q)
		if err != nil {
			return err
		}
		onSnapshot(props)
		return nil
	}, onError), nil
}

// CreateProperty inserts p under a fresh ObjectID hex string.
func (s *Store) CreateProperty(ctx context.Context, p *domain.Property) (string, error) {
	ctx, span := tracer.Start(ctx, "Mongo.CreateProperty")
	defer span.End()

	doc := propertyDocFrom(p)
	doc.ID = bson.NewObjectID().Hex()
	if _, err := s.db.Collection(collProperties).InsertOne(ctx, doc); err != nil {
		return "", wrap("properties", err)
	}
	span.SetAttributes(attribute.String("property.id", doc.ID))
	return doc.ID, nil
}

// UpdateProperty $sets the patched fields and bumps updatedAt.
func (s *Store) UpdateProperty(ctx context.Context, id string, patch *domain.PropertyPatch) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateProperty")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	set, unset := patchUpdate(patch)
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	res, err := s.db.Collection(collProperties).UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return wrap("properties", err)
	}
	if res.MatchedCount == 0 {
		return &domain.ErrNotFound{Resource: "property", ID: id}
	}
	return nil
}

// DeleteProperty removes a property. Deleting a missing id is not an error.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteProperty")
	defer span.End()

	_, err := s.db.Collection(collProperties).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return wrap("properties", err)
}

// ReorderProperties sets order = index for every id inside one transaction.
func (s *Store) ReorderProperties(ctx context.Context, orderedIDs []string) error {
	ctx, span := tracer.Start(ctx, "Mongo.ReorderProperties")
	defer span.End()
	span.SetAttributes(attribute.Int("property.count", len(orderedIDs)))

	if len(orderedIDs) == 0 {
		return nil
	}

	models := reorderModels(orderedIDs, time.Now().UTC())

	sess, err := s.client.StartSession()
	if err != nil {
		return wrap("properties", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return s.db.Collection(collProperties).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	})
	return wrap("properties", err)
}

func reorderModels(orderedIDs []string, now time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: id}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "order", Value: i},
				{Key: "updatedAt", Value: now},
			}}}))
	}
	return models
}

// ============================================================
// Leads and admins
// ============================================================

// CreateLead inserts lead and fills its id.
func (s *Store) CreateLead(ctx context.Context, lead *domain.Lead) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateLead")
	defer span.End()

	doc := leadDocFrom(lead)
	doc.ID = bson.NewObjectID().Hex()
	if _, err := s.db.Collection(collLeads).InsertOne(ctx, doc); err != nil {
		return wrap("leads", err)
	}
	lead.ID = doc.ID
	return nil
}

func (s *Store) listLeads(ctx context.Context) ([]domain.Lead, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.db.Collection(collLeads).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrap("leads", err)
	}
	var docs []leadDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("leads", err)
	}
	out := make([]domain.Lead, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// WatchLeads delivers all leads, newest first, after every change.
func (s *Store) WatchLeads(ctx context.Context, onSnapshot port.LeadSnapshotFunc, onError port.ErrorFunc) (port.CancelFunc, error) {
	return s.watch(ctx, collLeads, func(ctx context.Context) error {
		leads, err := s.listLeads(ctx)
		if err != nil {
			return err
		}
		onSnapshot(leads)
		return nil
	}, onError), nil
}

// GetRole reads admins/{uid}. A missing record returns (nil, nil).
func (s *Store) GetRole(ctx context.Context, uid string) (*domain.RoleRecord, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetRole")
	defer span.End()

	var doc struct {
		UID  string `bson:"_id"`
		Role string `bson:"role"`
	}
	err := s.db.Collection(collAdmins).FindOne(ctx, bson.D{{Key: "_id", Value: uid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("admins", err)
	}
	return &domain.RoleRecord{UID: doc.UID, Role: doc.Role}, nil
}
