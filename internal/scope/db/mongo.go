package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Repository on a MongoDB database with "movies" and
// "users" collections
type MongoStore struct {
	client *mongo.Client
	movies *mongo.Collection
	users  *mongo.Collection
	now    func() time.Time
}

// NewMongoStore connects to uri and ensures indexes on database dbName
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	database := client.Database(dbName)
	s := &MongoStore{
		client: client,
		movies: database.Collection("movies"),
		users:  database.Collection("users"),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.movies.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "imdbRank", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	return err
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateMovie inserts a movie
func (s *MongoStore) CreateMovie(ctx context.Context, m Movie) (Movie, error) {
	m, err := prepareNew(m, s.now())
	if err != nil {
		return Movie{}, err
	}
	if _, err := s.movies.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Movie{}, ErrDuplicate
		}
		return Movie{}, fmt.Errorf("failed to insert movie: %w", err)
	}
	return m, nil
}

// GetMovie retrieves a movie by ID
func (s *MongoStore) GetMovie(ctx context.Context, id string) (Movie, error) {
	var m Movie
	err := s.movies.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Movie{}, ErrNotFound
	}
	if err != nil {
		return Movie{}, err
	}
	return utcMovie(m), nil
}

// UpdateMovie merges patch into the stored movie. The replace is guarded by
// the previous updatedAt so a concurrent writer surfaces as ErrNotFound
// instead of being overwritten.
func (s *MongoStore) UpdateMovie(ctx context.Context, id string, patch MoviePatch) (Movie, error) {
	existing, err := s.GetMovie(ctx, id)
	if err != nil {
		return Movie{}, err
	}
	updated, err := applyPatch(existing, patch, s.now())
	if err != nil {
		return Movie{}, err
	}

	res, err := s.movies.ReplaceOne(ctx, bson.M{"_id": id, "updatedAt": existing.UpdatedAt}, updated)
	if err != nil {
		return Movie{}, fmt.Errorf("failed to update movie: %w", err)
	}
	if res.MatchedCount == 0 {
		return Movie{}, ErrNotFound
	}
	return updated, nil
}

// DeleteMovie removes a movie
func (s *MongoStore) DeleteMovie(ctx context.Context, id string) error {
	res, err := s.movies.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearMovies removes all movies
func (s *MongoStore) ClearMovies(ctx context.Context) (int64, error) {
	res, err := s.movies.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear movies: %w", err)
	}
	return res.DeletedCount, nil
}

// ListMovies sorts through an aggregation so unranked movies can be pushed
// to the end regardless of direction
func (s *MongoStore) ListMovies(ctx context.Context, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()

	total, err := s.movies.CountDocuments(ctx, bson.M{})
	if err != nil {
		return MoviePage{}, fmt.Errorf("failed to count movies: %w", err)
	}

	dir := 1
	if opts.Order == OrderDesc {
		dir = -1
	}
	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{
			"_unranked": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$ifNull": bson.A{"$imdbRank", 0}}, 0}}, 0, 1,
			}},
		}}},
		{{Key: "$sort", Value: mongoSort(opts.Sort, dir)}},
		{{Key: "$skip", Value: int64(opts.Offset())}},
		{{Key: "$limit", Value: int64(opts.Limit)}},
		{{Key: "$project", Value: bson.M{"_unranked": 0}}},
	}

	cur, err := s.movies.Aggregate(ctx, pipeline)
	if err != nil {
		return MoviePage{}, fmt.Errorf("failed to list movies: %w", err)
	}
	return decodePage(ctx, cur, total)
}

func mongoSort(field SortField, dir int) bson.D {
	keys := bson.D{}
	if field == SortImdbRank {
		keys = append(keys, bson.E{Key: "_unranked", Value: 1})
	}
	keys = append(keys, bson.E{Key: string(field), Value: dir})
	return append(keys,
		bson.E{Key: "createdAt", Value: 1},
		bson.E{Key: "_id", Value: 1},
	)
}

// SearchMovies matches title, description and director with a
// case-insensitive regex built from the escaped query
func (s *MongoStore) SearchMovies(ctx context.Context, query string, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(query)), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"title": pattern},
		bson.M{"description": pattern},
		bson.M{"director": pattern},
	}}

	total, err := s.movies.CountDocuments(ctx, filter)
	if err != nil {
		return MoviePage{}, fmt.Errorf("failed to count movies: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit))
	cur, err := s.movies.Find(ctx, filter, findOpts)
	if err != nil {
		return MoviePage{}, fmt.Errorf("failed to search movies: %w", err)
	}
	return decodePage(ctx, cur, total)
}

func decodePage(ctx context.Context, cur *mongo.Cursor, total int64) (MoviePage, error) {
	defer func() { _ = cur.Close(ctx) }()

	page := MoviePage{Movies: []Movie{}, Total: total}
	for cur.Next(ctx) {
		var m Movie
		if err := cur.Decode(&m); err != nil {
			return MoviePage{}, err
		}
		page.Movies = append(page.Movies, utcMovie(m))
	}
	return page, cur.Err()
}

func utcMovie(m Movie) Movie {
	m.ReleaseDate = m.ReleaseDate.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m
}

// CountMovies returns the number of movies
func (s *MongoStore) CountMovies(ctx context.Context) (int64, error) {
	return s.movies.CountDocuments(ctx, bson.M{})
}

// CreateUser inserts an account; the unique email index rejects duplicates
func (s *MongoStore) CreateUser(ctx context.Context, u User) (User, error) {
	u, err := prepareUser(u, s.now())
	if err != nil {
		return User{}, err
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves an account by ID
func (s *MongoStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

// GetUserByEmail retrieves an account by email
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.findUser(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (User, error) {
	var u User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
