// Package dynamodb implements the patient record store on Amazon DynamoDB.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kozaktomas/patient-face-id/internal/awsutil"
	"github.com/kozaktomas/patient-face-id/internal/config"
	"github.com/kozaktomas/patient-face-id/internal/database"
)

const tableReadyTimeout = 2 * time.Minute

// API is the subset of the DynamoDB client used by Store.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store reads and writes patient records as DynamoDB items.
type Store struct {
	client API
}

// New creates a store backed by the given client.
func New(client API) *Store {
	return &Store{client: client}
}

// NewFromConfig builds a DynamoDB client from the shared AWS configuration.
func NewFromConfig(ctx context.Context, cfg config.AWSConfig) (*Store, error) {
	awsCfg, err := awsutil.LoadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awsutil.Endpoint(cfg)
	})
	return New(client), nil
}

// PutRecord writes the record unconditionally, replacing any item with the same patient ID.
func (s *Store) PutRecord(ctx context.Context, table string, record database.PatientRecord) error {
	item, err := encodeItem(record)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}

// QueryByIndex runs an equality key condition, on the given secondary index when index is set
// and on the table's primary key otherwise.
func (s *Store) QueryByIndex(
	ctx context.Context, table, index, key, value string, limit int,
) ([]database.PatientRecord, error) {
	if limit <= 0 {
		limit = database.DefaultQueryLimit
	}

	in := &dynamodb.QueryInput{
		TableName:                aws.String(table),
		KeyConditionExpression:   aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{"#k": key},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(int32(limit)), //nolint:gosec // limit is small and positive
	}
	if index != "" {
		in.IndexName = aws.String(index)
	}

	out, err := s.client.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("dynamodb query %s: %w", key, err)
	}

	records := make([]database.PatientRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := decodeItem(item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CreateTable creates the records table keyed by patient_id with a face_id global secondary
// index, then waits until it is active. An existing table is left untouched.
func (s *Store) CreateTable(ctx context.Context, table, index string) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(database.FieldPatientID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(database.FieldFaceID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(database.FieldPatientID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(index),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(database.FieldFaceID), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("dynamodb create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, tableReadyTimeout); err != nil {
		return fmt.Errorf("waiting for table %s: %w", table, err)
	}
	return nil
}

var (
	_ database.PatientStore = (*Store)(nil)
	_ database.TableCreator = (*Store)(nil)
)
