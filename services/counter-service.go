package services

import (
	"context"
	"fmt"

	"subsidy-crm/crm-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence names handed to Next.
const (
	SeqLeads    = "leads"
	SeqClients  = "clients"
	SeqProjects = "projects"
	SeqInvoices = "invoices"
)

type CounterService struct {
	CountersCollection *mongo.Collection
}

func NewCounterService(countersCollection *mongo.Collection) *CounterService {
	return &CounterService{CountersCollection: countersCollection}
}

// Next atomically increments and returns the named sequence. The upsert makes
// the first call create the counter document; concurrent callers each get a
// distinct value.
func (s *CounterService) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := s.CountersCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %v", name, err)
	}
	return counter.Seq, nil
}

// FormatSequence renders a sequence value as a human-readable ID, e.g.
// LEAD-0001.
func FormatSequence(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}
