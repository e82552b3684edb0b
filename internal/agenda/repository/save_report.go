package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	agendaerrors "barberdesk/internal/agenda/errors"
	"barberdesk/pkg/config"
	"barberdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "save_reports"
)

type SaveReportRepository interface {
	Create(ctx context.Context, report *model.SaveReport) error
	FindByID(ctx context.Context, id string) (*model.SaveReport, error)
	FindBySubject(ctx context.Context, subject string, limit int, offset int64) ([]*model.SaveReport, error)
	CountBySubject(ctx context.Context, subject string) (int64, error)
}

type mongoSaveReportRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSaveReportRepository(cfg *config.Config) SaveReportRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSaveReportRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout bounds ctx by timeout, keeping an earlier deadline if ctx
// already has one.
func (r *mongoSaveReportRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSaveReportRepository) Create(ctx context.Context, report *model.SaveReport) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	report.CreatedAt = report.CreatedAt.UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to create save report: %w", err)
	}
	return nil
}

func (r *mongoSaveReportRepository) FindByID(ctx context.Context, id string) (*model.SaveReport, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var report model.SaveReport
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", agendaerrors.ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to find save report: %w", err)
	}
	return &report, nil
}

func (r *mongoSaveReportRepository) FindBySubject(ctx context.Context, subject string, limit int, offset int64) ([]*model.SaveReport, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"subject": subject}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query save reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []*model.SaveReport{}
	if err = cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode save reports: %w", err)
	}
	return reports, nil
}

func (r *mongoSaveReportRepository) CountBySubject(ctx context.Context, subject string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"subject": subject})
	if err != nil {
		return 0, fmt.Errorf("failed to count save reports: %w", err)
	}
	return count, nil
}
