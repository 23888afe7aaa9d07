// Package rekognition adapts Amazon Rekognition face collections to the patient recognizer.
package rekognition

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/kozaktomas/patient-face-id/internal/awsutil"
	"github.com/kozaktomas/patient-face-id/internal/config"
	"github.com/kozaktomas/patient-face-id/internal/patient"
)

// API is the subset of the Rekognition client used by Recognizer.
type API interface {
	IndexFaces(ctx context.Context, in *rekognition.IndexFacesInput, opts ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	SearchFacesByImage(ctx context.Context, in *rekognition.SearchFacesByImageInput, opts ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	CreateCollection(ctx context.Context, in *rekognition.CreateCollectionInput, opts ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
}

// Recognizer indexes and searches faces in Rekognition collections.
type Recognizer struct {
	client API
}

// New creates a recognizer backed by the given client.
func New(client API) *Recognizer {
	return &Recognizer{client: client}
}

// NewFromConfig builds a Rekognition client from the shared AWS configuration.
func NewFromConfig(ctx context.Context, cfg config.AWSConfig) (*Recognizer, error) {
	awsCfg, err := awsutil.LoadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := rekognition.NewFromConfig(awsCfg, func(o *rekognition.Options) {
		o.BaseEndpoint = awsutil.Endpoint(cfg)
	})
	return New(client), nil
}

// IndexFaces adds the faces Rekognition detects in the image to the collection.
// Faces rejected by the quality filter are not returned.
func (r *Recognizer) IndexFaces(ctx context.Context, in patient.IndexFacesInput) ([]patient.IndexedFace, error) {
	req := &rekognition.IndexFacesInput{
		CollectionId:        aws.String(in.CollectionID),
		Image:               &types.Image{Bytes: in.Image},
		DetectionAttributes: []types.Attribute{types.AttributeDefault},
	}
	if id := ExternalImageID(in.ExternalImageID); id != "" {
		req.ExternalImageId = aws.String(id)
	}
	if in.MaxFaces > 0 {
		req.MaxFaces = aws.Int32(int32(in.MaxFaces)) //nolint:gosec // small positive count
	}
	if in.QualityFilter != "" {
		req.QualityFilter = types.QualityFilter(in.QualityFilter)
	}

	out, err := r.client.IndexFaces(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rekognition index faces: %w", err)
	}

	faces := make([]patient.IndexedFace, 0, len(out.FaceRecords))
	for _, rec := range out.FaceRecords {
		if rec.Face == nil || rec.Face.FaceId == nil {
			continue
		}
		faces = append(faces, patient.IndexedFace{
			FaceID:      aws.ToString(rec.Face.FaceId),
			Confidence:  toFloat64(rec.Face.Confidence),
			BoundingBox: boundingBox(rec.Face.BoundingBox),
		})
	}
	return faces, nil
}

// SearchFacesByImage searches the collection for the largest face in the image.
// Rekognition fails the call when the image contains no face.
func (r *Recognizer) SearchFacesByImage(ctx context.Context, in patient.SearchInput) ([]patient.FaceMatch, error) {
	req := &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(in.CollectionID),
		Image:              &types.Image{Bytes: in.Image},
		FaceMatchThreshold: aws.Float32(float32(in.Threshold)),
	}
	if in.MaxFaces > 0 {
		req.MaxFaces = aws.Int32(int32(in.MaxFaces)) //nolint:gosec // small positive count
	}

	out, err := r.client.SearchFacesByImage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rekognition search faces: %w", err)
	}

	matches := make([]patient.FaceMatch, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		if m.Face == nil || m.Face.FaceId == nil {
			continue
		}
		matches = append(matches, patient.FaceMatch{
			FaceID:     aws.ToString(m.Face.FaceId),
			Similarity: toFloat64(m.Similarity),
		})
	}
	return matches, nil
}

// CreateCollection creates the face collection. An existing collection is not an error.
func (r *Recognizer) CreateCollection(ctx context.Context, collectionID string) error {
	_, err := r.client.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(collectionID),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("rekognition create collection %s: %w", collectionID, err)
	}
	return nil
}

// toFloat64 widens a score without exposing float32 rounding noise (98.76 stays 98.76).
func toFloat64(f *float32) float64 {
	if f == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(*f), 'g', -1, 32), 64)
	return v
}

func boundingBox(b *types.BoundingBox) patient.BoundingBox {
	if b == nil {
		return patient.BoundingBox{}
	}
	return patient.BoundingBox{
		Left:   toFloat64(b.Left),
		Top:    toFloat64(b.Top),
		Width:  toFloat64(b.Width),
		Height: toFloat64(b.Height),
	}
}

var _ patient.Recognizer = (*Recognizer)(nil)
