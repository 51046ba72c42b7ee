// catalog-service/internal/store/mongo_movie_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"catalog-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const moviesCollection = "movies"

// movieDocument is the stored shape of a movie. Field names match the JSON
// names so the sort safelist applies unchanged.
type movieDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description"`
	Category     domain.Category    `bson:"category"`
	Quality      domain.Quality     `bson:"quality"`
	Size         string             `bson:"size"`
	DownloadLink string             `bson:"downloadLink"`
	Poster       string             `bson:"poster"`
	Views        int64              `bson:"views"`
	Downloads    int64              `bson:"downloads"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *movieDocument) toDomain() *domain.Movie {
	return &domain.Movie{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Description:  d.Description,
		Category:     d.Category,
		Quality:      d.Quality,
		Size:         d.Size,
		DownloadLink: d.DownloadLink,
		Poster:       d.Poster,
		Views:        d.Views,
		Downloads:    d.Downloads,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// parseObjectID accepts the 24-hex ids this backend assigns.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidMovieID
	}
	return oid, nil
}

// MongoMovieStore implements MovieStore on a MongoDB collection.
type MongoMovieStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

func NewMongoMovieStore(db *mongo.Database, logger *slog.Logger) *MongoMovieStore {
	return &MongoMovieStore{coll: db.Collection(moviesCollection), logger: logger}
}

// EnsureIndexes creates the filter and default-sort indexes.
func (s *MongoMovieStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "quality", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create movie indexes: %w", err)
	}
	return nil
}

func (s *MongoMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := movieDocument{
		ID:           primitive.NewObjectID(),
		Title:        movie.Title,
		Description:  movie.Description,
		Category:     movie.Category,
		Quality:      movie.Quality,
		Size:         movie.Size,
		DownloadLink: movie.DownloadLink,
		Poster:       movie.Poster,
		Views:        movie.Views,
		Downloads:    movie.Downloads,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert movie document", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create movie: %w", err)
	}
	*movie = *doc.toDomain()
	s.logger.InfoContext(ctx, "Movie document created", slog.String("movieID", movie.ID))
	return nil
}

func (s *MongoMovieStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, oid)
}

func (s *MongoMovieStore) findOne(ctx context.Context, oid primitive.ObjectID) (*domain.Movie, error) {
	var doc movieDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie by ID: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *MongoMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	oid, err := parseObjectID(movie.ID)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"title":        movie.Title,
		"description":  movie.Description,
		"category":     movie.Category,
		"quality":      movie.Quality,
		"size":         movie.Size,
		"downloadLink": movie.DownloadLink,
		"poster":       movie.Poster,
		"updatedAt":    time.Now().UTC().Truncate(time.Millisecond),
	}}
	var doc movieDocument
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to update movie document", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie: %w", err)
	}
	*movie = *doc.toDomain()
	return nil
}

func (s *MongoMovieStore) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrMovieNotFound
	}
	s.logger.InfoContext(ctx, "Movie document deleted", slog.String("movieID", id))
	return nil
}

// listFilter mirrors MovieListParams.Matches as a query document.
func listFilter(p MovieListParams) bson.M {
	filter := bson.M{}
	if p.Category != "" {
		filter["category"] = p.Category
	}
	if p.Quality != "" {
		filter["quality"] = p.Quality
	}
	if p.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(p.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

func (s *MongoMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	filter := listFilter(params)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}

	dir := 1
	if params.Descending() {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{
		{Key: params.SortField(), Value: dir},
		{Key: "_id", Value: 1},
	})
	if params.Paginated() {
		opts.SetSkip(int64(params.Offset())).SetLimit(int64(params.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}
	var docs []movieDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode movies: %w", err)
	}

	movies := make([]*domain.Movie, 0, len(docs))
	for i := range docs {
		movies = append(movies, docs[i].toDomain())
	}
	return movies, int(total), nil
}

func (s *MongoMovieStore) IncrementViews(ctx context.Context, id string) (*domain.Movie, error) {
	return s.increment(ctx, id, "views")
}

func (s *MongoMovieStore) IncrementDownloads(ctx context.Context, id string) (*domain.Movie, error) {
	return s.increment(ctx, id, "downloads")
}

// increment is a single server-side $inc returning the post-image.
func (s *MongoMovieStore) increment(ctx context.Context, id, field string) (*domain.Movie, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc movieDocument
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{field: 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to increment movie counter", slog.String("movieID", id), slog.String("field", field), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to increment %s: %w", field, err)
	}
	return doc.toDomain(), nil
}

func (s *MongoMovieStore) Stats(ctx context.Context) (*domain.MovieStats, error) {
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}
	categories, err := s.groupBy(ctx, "category")
	if err != nil {
		return nil, err
	}
	qualities, err := s.groupBy(ctx, "quality")
	if err != nil {
		return nil, err
	}
	return &domain.MovieStats{
		TotalMovies:     total,
		TotalCategories: len(categories),
		TotalQualities:  len(qualities),
		CategoryStats:   categories,
		QualityStats:    qualities,
	}, nil
}

func (s *MongoMovieStore) groupBy(ctx context.Context, field string) ([]domain.CountStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to group movies by %s: %w", field, err)
	}
	out := []domain.CountStat{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s stats: %w", field, err)
	}
	return out, nil
}
