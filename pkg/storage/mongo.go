package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/apembroke/switchboard/pkg/auth"
)

// Reserved system collections within the Mongo database
const (
	mongoProjectsCollection = "switchboard_projects"
	mongoAccountsCollection = "switchboard_accounts"
)

// MongoBackend implements Backend on MongoDB. Dynamic collections map
// directly onto Mongo collections, which are schemaless by nature, the
// same property the schema-optional record model relies on.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoBackend connects to MongoDB and returns a backend over the
// configured database
func NewMongoBackend(ctx context.Context, cfg Config) (*MongoBackend, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}
	timeout := cfg.MongoTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoBackend{
		client: client,
		db:     client.Database(cfg.MongoDatabase),
	}, nil
}

// CreateProject implements ProjectStore.CreateProject
func (b *MongoBackend) CreateProject(ctx context.Context, project *Project) error {
	_, err := b.db.Collection(mongoProjectsCollection).InsertOne(ctx, project)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

// GetProject implements ProjectStore.GetProject
func (b *MongoBackend) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	err := b.db.Collection(mongoProjectsCollection).FindOne(ctx, bson.M{"id": id}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects implements ProjectStore.ListProjects
func (b *MongoBackend) ListProjects(ctx context.Context) ([]*Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := b.db.Collection(mongoProjectsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []*Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject implements ProjectStore.UpdateProject
func (b *MongoBackend) UpdateProject(ctx context.Context, project *Project) error {
	res, err := b.db.Collection(mongoProjectsCollection).ReplaceOne(ctx, bson.M{"id": project.ID}, project)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject implements ProjectStore.DeleteProject
func (b *MongoBackend) DeleteProject(ctx context.Context, id string) error {
	res, err := b.db.Collection(mongoProjectsCollection).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// mongoAccount carries the password hash, which auth.Account hides from JSON
type mongoAccount struct {
	ID           string    `bson:"id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// CreateAccount implements AccountStore.CreateAccount
func (b *MongoBackend) CreateAccount(ctx context.Context, account *auth.Account) error {
	col := b.db.Collection(mongoAccountsCollection)
	count, err := col.CountDocuments(ctx, bson.M{"email": strings.ToLower(account.Email)})
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyExists
	}
	_, err = col.InsertOne(ctx, &mongoAccount{
		ID:           account.ID,
		Name:         account.Name,
		Email:        strings.ToLower(account.Email),
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	})
	return err
}

// GetAccount implements AccountStore.GetAccount
func (b *MongoBackend) GetAccount(ctx context.Context, id string) (*auth.Account, error) {
	return b.findAccount(ctx, bson.M{"id": id})
}

// GetAccountByEmail implements AccountStore.GetAccountByEmail
func (b *MongoBackend) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return b.findAccount(ctx, bson.M{"email": strings.ToLower(email)})
}

func (b *MongoBackend) findAccount(ctx context.Context, filter bson.M) (*auth.Account, error) {
	var raw mongoAccount
	err := b.db.Collection(mongoAccountsCollection).FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auth.Account{
		ID:           raw.ID,
		Name:         raw.Name,
		Email:        raw.Email,
		PasswordHash: raw.PasswordHash,
		CreatedAt:    raw.CreatedAt,
		UpdatedAt:    raw.UpdatedAt,
	}, nil
}

// OpenCollection implements CollectionOpener.OpenCollection
func (b *MongoBackend) OpenCollection(ctx context.Context, name string) (CollectionHandle, error) {
	if name == "" {
		return nil, ErrInvalidCollectionName
	}
	if name == mongoProjectsCollection || name == mongoAccountsCollection {
		return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidCollectionName, name)
	}
	return &mongoCollection{name: name, col: b.db.Collection(name)}, nil
}

// Ping implements Backend.Ping
func (b *MongoBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

// Close implements Backend.Close
func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

// mongoCollection is a CollectionHandle over one Mongo collection
type mongoCollection struct {
	name string
	col  *mongo.Collection
}

func (c *mongoCollection) Name() string { return c.name }

func (c *mongoCollection) Insert(ctx context.Context, doc Document) (Document, error) {
	stamped := StampNew(doc.Clone())
	if _, err := c.col.InsertOne(ctx, bson.M(stamped)); err != nil {
		return nil, err
	}
	return stamped, nil
}

func (c *mongoCollection) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := c.col.FindOne(ctx, bson.M{DocumentIDField: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *mongoCollection) List(ctx context.Context) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: CreatedAtField, Value: 1}})
	cursor, err := c.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *mongoCollection) Update(ctx context.Context, id string, doc Document) (Document, error) {
	fields := doc.Clone()
	delete(fields, DocumentIDField)
	delete(fields, CreatedAtField)
	StampUpdate(fields)

	res := c.col.FindOneAndUpdate(ctx,
		bson.M{DocumentIDField: id},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var updated Document
	err := res.Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *mongoCollection) Delete(ctx context.Context, id string) (Document, error) {
	res := c.col.FindOneAndDelete(ctx, bson.M{DocumentIDField: id})
	var deleted Document
	err := res.Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (c *mongoCollection) FindFirst(ctx context.Context, field string, value interface{}) (Document, error) {
	var doc Document
	err := c.col.FindOne(ctx, bson.M{field: value}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}
