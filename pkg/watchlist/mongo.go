package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var _ Store = (*MongoStore)(nil)

const mongoCollection = "watchlists"

type mongoWatchlist struct {
	UserID    string    `bson:"userId"`
	Coins     []string  `bson:"coins"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps one document per user in the watchlists collection.
type MongoStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

func NewMongoStore(db *mongo.Database, logger *slog.Logger) *MongoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoStore{coll: db.Collection(mongoCollection), logger: logger}
}

// EnsureIndexes makes userId unique so concurrent upserts cannot create two
// documents for the same user.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return apperr.Storage("watchlist index", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, userID string) (models.WatchlistRecord, error) {
	var doc mongoWatchlist
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.EmptyWatchlist(userID), nil
	}
	if err != nil {
		s.logger.Error("failed to get watchlist", slog.String("user_id", userID), slog.Any("error", err))
		return models.WatchlistRecord{}, apperr.Storage("watchlist get", err)
	}
	return doc.record(), nil
}

func (s *MongoStore) Set(ctx context.Context, userID string, coins models.CoinSet) (models.WatchlistRecord, error) {
	update := bson.M{"$set": bson.M{
		"coins":     coins.Slice(),
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc mongoWatchlist
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&doc)
	if err != nil {
		s.logger.Error("failed to set watchlist", slog.String("user_id", userID), slog.Any("error", err))
		return models.WatchlistRecord{}, apperr.Storage("watchlist set", err)
	}
	return doc.record(), nil
}

func (d mongoWatchlist) record() models.WatchlistRecord {
	return models.WatchlistRecord{
		UserID:    d.UserID,
		Coins:     models.NewCoinSet(d.Coins...),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
