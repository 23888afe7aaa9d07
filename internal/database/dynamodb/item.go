package dynamodb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kozaktomas/patient-face-id/internal/database"
)

// itemKeys holds the typed attributes of a record item.
type itemKeys struct {
	PatientID string `dynamodbav:"patient_id"`
	FaceID    string `dynamodbav:"face_id"`
	CreatedAt int64  `dynamodbav:"created_at"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

func encodeItem(record database.PatientRecord) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(itemKeys{
		PatientID: record.PatientID,
		FaceID:    record.FaceID,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	for k, v := range record.Attributes {
		if database.IsReservedField(k) {
			continue
		}
		item[k] = &types.AttributeValueMemberS{Value: v}
	}
	return item, nil
}

// decodeItem reads the typed attributes and keeps the remaining string attributes.
// Values of any other DynamoDB type are skipped.
func decodeItem(item map[string]types.AttributeValue) (database.PatientRecord, error) {
	var keys itemKeys
	if err := attributevalue.UnmarshalMap(item, &keys); err != nil {
		return database.PatientRecord{}, fmt.Errorf("decode item: %w", err)
	}

	rec := database.PatientRecord{
		PatientID:  keys.PatientID,
		FaceID:     keys.FaceID,
		CreatedAt:  keys.CreatedAt,
		UpdatedAt:  keys.UpdatedAt,
		Attributes: make(map[string]string),
	}
	for k, v := range item {
		if database.IsReservedField(k) {
			continue
		}
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			rec.Attributes[k] = s.Value
		}
	}
	return rec, nil
}
