package appointments

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

const mongoCollection = "appointments"

// appointmentDoc keeps the field names of existing appointment collections.
type appointmentDoc struct {
	ID              bson.ObjectID    `bson:"_id,omitempty"`
	Date            string           `bson:"date"`
	Time            string           `bson:"time"`
	FullName        string           `bson:"fullName"`
	PhoneNumber     string           `bson:"phoneNumber"`
	Email           string           `bson:"email,omitempty"`
	WebsiteLink     string           `bson:"websiteLink,omitempty"`
	AvgMonthlySales string           `bson:"avgMonthlySales,omitempty"`
	SubmissionDate  string           `bson:"submissionDate"`
	Status          string           `bson:"status"`
	Activity        []leads.Activity `bson:"activity"`
	LatestNote      string           `bson:"latestNote"`
}

func toDoc(raw leads.RawAppointment) appointmentDoc {
	return appointmentDoc{
		Date:            raw.Date,
		Time:            raw.Time,
		FullName:        raw.FullName,
		PhoneNumber:     raw.PhoneNumber,
		Email:           raw.Email,
		WebsiteLink:     raw.WebsiteLink,
		AvgMonthlySales: raw.AvgMonthlySales,
		SubmissionDate:  raw.SubmissionDate,
		Status:          raw.Status,
		Activity:        nonNilActivity(raw.Activity),
		LatestNote:      raw.LatestNote,
	}
}

func (d appointmentDoc) raw() leads.RawAppointment {
	return leads.RawAppointment{
		ID:              d.ID.Hex(),
		Date:            d.Date,
		Time:            d.Time,
		FullName:        d.FullName,
		PhoneNumber:     d.PhoneNumber,
		Email:           d.Email,
		WebsiteLink:     d.WebsiteLink,
		AvgMonthlySales: d.AvgMonthlySales,
		SubmissionDate:  d.SubmissionDate,
		Status:          d.Status,
		Activity:        nonNilActivity(d.Activity),
		LatestNote:      d.LatestNote,
	}
}

// patchUpdate builds the $set document for a patch.
func patchUpdate(p leads.Patch) bson.D {
	set := bson.D{}
	if p.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*p.Status)})
	}
	if p.Activity != nil {
		set = append(set, bson.E{Key: "activity", Value: p.Activity})
	}
	if p.LatestNote != nil {
		set = append(set, bson.E{Key: "latestNote", Value: *p.LatestNote})
	}
	if p.Date != nil {
		set = append(set, bson.E{Key: "date", Value: *p.Date})
	}
	if p.Time != nil {
		set = append(set, bson.E{Key: "time", Value: *p.Time})
	}
	return bson.D{{Key: "$set", Value: set}}
}

func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, ErrNotFound
	}
	return oid, nil
}

// MongoRepository stores appointments in a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository uses the appointments collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	if db == nil {
		panic("appointments: mongo database required")
	}
	return &MongoRepository{coll: db.Collection(mongoCollection)}
}

// ConnectMongo opens a client and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("appointments: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("appointments: ping mongo: %w", err)
	}
	return client, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]leads.RawAppointment, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	var docs []appointmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("appointments: decode list: %w", err)
	}
	out := make([]leads.RawAppointment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.raw())
	}
	return out, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (leads.RawAppointment, error) {
	oid, err := objectID(id)
	if err != nil {
		return leads.RawAppointment{}, err
	}
	var doc appointmentDoc
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return leads.RawAppointment{}, ErrNotFound
	}
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return doc.raw(), nil
}

func (r *MongoRepository) Create(ctx context.Context, raw leads.RawAppointment) (leads.RawAppointment, error) {
	doc := toDoc(raw)
	doc.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: insert: %w", err)
	}
	return doc.raw(), nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, patch leads.Patch) (leads.RawAppointment, error) {
	oid, err := objectID(id)
	if err != nil {
		return leads.RawAppointment{}, err
	}
	if patch.Empty() {
		return r.Get(ctx, id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc appointmentDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, patchUpdate(patch), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return leads.RawAppointment{}, ErrNotFound
	}
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: update %s: %w", id, err)
	}
	return doc.raw(), nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (leads.RawAppointment, error) {
	oid, err := objectID(id)
	if err != nil {
		return leads.RawAppointment{}, err
	}
	var doc appointmentDoc
	err = r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return leads.RawAppointment{}, ErrNotFound
	}
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: delete %s: %w", id, err)
	}
	return doc.raw(), nil
}
