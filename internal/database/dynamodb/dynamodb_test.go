package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kozaktomas/patient-face-id/internal/database"
)

type fakeClient struct {
	putInput    *dynamodb.PutItemInput
	queryInput  *dynamodb.QueryInput
	createInput *dynamodb.CreateTableInput

	queryItems  []map[string]types.AttributeValue
	putErr      error
	createErr   error
	describeHit int
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeClient) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInput = in
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

func (f *fakeClient) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.createInput = in
	return &dynamodb.CreateTableOutput{}, f.createErr
}

func (f *fakeClient) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.describeHit++
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableName: in.TableName, TableStatus: types.TableStatusActive},
	}, nil
}

func TestPutRecord_EncodesItem(t *testing.T) {
	client := &fakeClient{}
	store := New(client)

	rec := database.PatientRecord{
		PatientID:  "P-001",
		FaceID:     "face-1",
		CreatedAt:  1700000000000,
		UpdatedAt:  1700000000000,
		Attributes: map[string]string{"name": "Alice", "face_id": "spoofed"},
	}
	if err := store.PutRecord(context.Background(), "patients", rec); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	in := client.putInput
	if aws.ToString(in.TableName) != "patients" {
		t.Errorf("expected table patients, got %q", aws.ToString(in.TableName))
	}
	if in.ConditionExpression != nil {
		t.Error("expected unconditional put")
	}

	created, ok := in.Item["created_at"].(*types.AttributeValueMemberN)
	if !ok || created.Value != "1700000000000" {
		t.Errorf("expected created_at as number, got %#v", in.Item["created_at"])
	}
	faceID, ok := in.Item["face_id"].(*types.AttributeValueMemberS)
	if !ok || faceID.Value != "face-1" {
		t.Errorf("attribute must not shadow face_id, got %#v", in.Item["face_id"])
	}
	name, ok := in.Item["name"].(*types.AttributeValueMemberS)
	if !ok || name.Value != "Alice" {
		t.Errorf("expected name attribute, got %#v", in.Item["name"])
	}
}

func TestPutRecord_WrapsError(t *testing.T) {
	boom := errors.New("throttled")
	store := New(&fakeClient{putErr: boom})

	err := store.PutRecord(context.Background(), "patients", database.PatientRecord{PatientID: "P-1"})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestQueryByIndex_BuildsQuery(t *testing.T) {
	client := &fakeClient{}
	store := New(client)

	if _, err := store.QueryByIndex(context.Background(), "patients", "face_id-index", "face_id", "face-1", 1); err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}

	in := client.queryInput
	if aws.ToString(in.IndexName) != "face_id-index" {
		t.Errorf("expected index face_id-index, got %q", aws.ToString(in.IndexName))
	}
	if aws.ToInt32(in.Limit) != 1 {
		t.Errorf("expected limit 1, got %d", aws.ToInt32(in.Limit))
	}
	if in.ExpressionAttributeNames["#k"] != "face_id" {
		t.Errorf("expected key face_id, got %v", in.ExpressionAttributeNames)
	}
	v, ok := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
	if !ok || v.Value != "face-1" {
		t.Errorf("expected value face-1, got %#v", in.ExpressionAttributeValues[":v"])
	}
}

func TestQueryByIndex_PrimaryKeyHasNoIndex(t *testing.T) {
	client := &fakeClient{}
	store := New(client)

	if _, err := store.QueryByIndex(context.Background(), "patients", "", "patient_id", "P-1", 0); err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}
	if client.queryInput.IndexName != nil {
		t.Errorf("expected no index name, got %q", aws.ToString(client.queryInput.IndexName))
	}
	if aws.ToInt32(client.queryInput.Limit) != database.DefaultQueryLimit {
		t.Errorf("expected default limit, got %d", aws.ToInt32(client.queryInput.Limit))
	}
}

func TestQueryByIndex_DecodesStringAttributesOnly(t *testing.T) {
	client := &fakeClient{
		queryItems: []map[string]types.AttributeValue{{
			"patient_id": &types.AttributeValueMemberS{Value: "P-001"},
			"face_id":    &types.AttributeValueMemberS{Value: "face-1"},
			"created_at": &types.AttributeValueMemberN{Value: "1700000000000"},
			"updated_at": &types.AttributeValueMemberN{Value: "1700000000001"},
			"name":       &types.AttributeValueMemberS{Value: "Alice"},
			"age":        &types.AttributeValueMemberN{Value: "42"},
			"allergies":  &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		}},
	}
	store := New(client)

	got, err := store.QueryByIndex(context.Background(), "patients", "face_id-index", "face_id", "face-1", 1)
	if err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	rec := got[0]
	if rec.PatientID != "P-001" || rec.FaceID != "face-1" {
		t.Errorf("unexpected keys: %+v", rec)
	}
	if rec.CreatedAt != 1700000000000 || rec.UpdatedAt != 1700000000001 {
		t.Errorf("unexpected timestamps: %d, %d", rec.CreatedAt, rec.UpdatedAt)
	}
	if len(rec.Attributes) != 1 || rec.Attributes["name"] != "Alice" {
		t.Errorf("expected only the name attribute, got %v", rec.Attributes)
	}
}

func TestCreateTable(t *testing.T) {
	client := &fakeClient{}
	store := New(client)

	if err := store.CreateTable(context.Background(), "patients", "face_id-index"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	in := client.createInput
	if len(in.GlobalSecondaryIndexes) != 1 || aws.ToString(in.GlobalSecondaryIndexes[0].IndexName) != "face_id-index" {
		t.Errorf("expected face_id-index GSI, got %+v", in.GlobalSecondaryIndexes)
	}
	if aws.ToString(in.KeySchema[0].AttributeName) != "patient_id" {
		t.Errorf("expected patient_id hash key, got %q", aws.ToString(in.KeySchema[0].AttributeName))
	}
	if client.describeHit == 0 {
		t.Error("expected CreateTable to wait for the table")
	}
}

func TestCreateTable_AlreadyExists(t *testing.T) {
	client := &fakeClient{createErr: &types.ResourceInUseException{Message: aws.String("exists")}}
	store := New(client)

	if err := store.CreateTable(context.Background(), "patients", "face_id-index"); err != nil {
		t.Errorf("expected existing table to be tolerated, got %v", err)
	}
	if client.describeHit != 0 {
		t.Error("expected no wait for an existing table")
	}
}
