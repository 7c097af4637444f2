package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"go_kifu/internal/bootstrap"
	"go_kifu/internal/domain"
	ownerrors "go_kifu/internal/errors"
)

const recordsCollection = "records"

// RecordRepository хранит записи партий: архив в Mongo, рабочий SGF-текст
// открытой записи — в Redis.
type RecordRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewRecordRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *RecordRepository {
	return &RecordRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (r *RecordRepository) GenerateRecordKey() string {
	return uuid.New().String()
}

func (r *RecordRepository) SaveRecord(ctx context.Context, rec domain.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(recordsCollection)
	if _, err := collection.InsertOne(ctx, rec); err != nil {
		r.log.Errorf("failed to insert record to database: %v", err)
		return err
	}

	r.log.Infof("record inserted successfully with key: %s", rec.Key)
	return nil
}

func (r *RecordRepository) GetRecordByKey(ctx context.Context, key string) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(recordsCollection)
	filter := bson.M{"key": key}

	var rec domain.Record
	err := collection.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Record{}, ownerrors.ErrRecordNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("ошибка при получении записи: %w", err)
	}
	return rec, nil
}

// UpdateRecordSGF фиксирует в архиве текущее состояние дерева.
func (r *RecordRepository) UpdateRecordSGF(ctx context.Context, key string, sgfText string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(recordsCollection)
	filter := bson.M{"key": key}
	update := bson.M{
		"$set": bson.M{
			"sgf":        sgfText,
			"updated_at": time.Now(),
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(false))
	if err != nil {
		r.log.Errorf("failed to update record %s: %v", key, err)
		return err
	}
	if res.MatchedCount == 0 {
		return ownerrors.ErrRecordNotFound
	}
	return nil
}

func (r *RecordRepository) ListRecords(ctx context.Context, pageNum int) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := int64(r.cfg.PageLimitList)
	if limit == 0 {
		limit = 20
	}
	skip := int64(pageNum) * limit

	collection := r.mongo.Collection(recordsCollection)
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении списка записей: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// -----------------------------------------------------
// Рабочий SGF в Redis
// -----------------------------------------------------

func (r *RecordRepository) SaveSGF(ctx context.Context, key string, sgfText string) error {
	return r.redis.Set(ctx, sgfRedisKey(key), sgfText, 0).Err()
}

func (r *RecordRepository) LoadSGF(ctx context.Context, key string) (string, error) {
	val, err := r.redis.Get(ctx, sgfRedisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ownerrors.ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RecordRepository) DeleteSGF(ctx context.Context, key string) error {
	return r.redis.Del(ctx, sgfRedisKey(key)).Err()
}

func sgfRedisKey(key string) string {
	return "sgf:" + key
}
