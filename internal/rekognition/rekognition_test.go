package rekognition

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/kozaktomas/patient-face-id/internal/patient"
)

type fakeClient struct {
	indexInput  *rekognition.IndexFacesInput
	searchInput *rekognition.SearchFacesByImageInput

	indexOut  *rekognition.IndexFacesOutput
	searchOut *rekognition.SearchFacesByImageOutput
	err       error
	createErr error
}

func (f *fakeClient) IndexFaces(_ context.Context, in *rekognition.IndexFacesInput, _ ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error) {
	f.indexInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.indexOut, nil
}

func (f *fakeClient) SearchFacesByImage(_ context.Context, in *rekognition.SearchFacesByImageInput, _ ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error) {
	f.searchInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.searchOut, nil
}

func (f *fakeClient) CreateCollection(_ context.Context, _ *rekognition.CreateCollectionInput, _ ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error) {
	return &rekognition.CreateCollectionOutput{}, f.createErr
}

func TestIndexFaces(t *testing.T) {
	client := &fakeClient{indexOut: &rekognition.IndexFacesOutput{
		FaceRecords: []types.FaceRecord{{
			Face: &types.Face{
				FaceId:      aws.String("3f1c-face"),
				Confidence:  aws.Float32(99.98),
				BoundingBox: &types.BoundingBox{Left: aws.Float32(0.25), Top: aws.Float32(0.1), Width: aws.Float32(0.5), Height: aws.Float32(0.6)},
			},
		}},
	}}
	r := New(client)

	faces, err := r.IndexFaces(context.Background(), patient.IndexFacesInput{
		CollectionID:    "patients",
		Image:           []byte("img"),
		ExternalImageID: "Jiří 7",
		MaxFaces:        1,
		QualityFilter:   "AUTO",
	})
	if err != nil {
		t.Fatalf("IndexFaces: %v", err)
	}

	in := client.indexInput
	if aws.ToString(in.CollectionId) != "patients" || aws.ToString(in.ExternalImageId) != "Jiri_7" {
		t.Errorf("unexpected input: collection=%q external=%q", aws.ToString(in.CollectionId), aws.ToString(in.ExternalImageId))
	}
	if aws.ToInt32(in.MaxFaces) != 1 || in.QualityFilter != types.QualityFilterAuto {
		t.Errorf("expected MaxFaces 1 and AUTO, got %d %q", aws.ToInt32(in.MaxFaces), in.QualityFilter)
	}

	if len(faces) != 1 || faces[0].FaceID != "3f1c-face" {
		t.Fatalf("unexpected faces: %+v", faces)
	}
	if faces[0].Confidence != 99.98 || faces[0].BoundingBox.Width != 0.5 {
		t.Errorf("unexpected face details: %+v", faces[0])
	}
}

func TestIndexFaces_NoFaces(t *testing.T) {
	client := &fakeClient{indexOut: &rekognition.IndexFacesOutput{
		UnindexedFaces: []types.UnindexedFace{{Reasons: []types.Reason{types.ReasonLowBrightness}}},
	}}

	faces, err := New(client).IndexFaces(context.Background(), patient.IndexFacesInput{CollectionID: "patients", Image: []byte("x")})
	if err != nil {
		t.Fatalf("IndexFaces: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected no faces, got %+v", faces)
	}
}

func TestSearchFacesByImage(t *testing.T) {
	client := &fakeClient{searchOut: &rekognition.SearchFacesByImageOutput{
		FaceMatches: []types.FaceMatch{{
			Face:       &types.Face{FaceId: aws.String("3f1c-face")},
			Similarity: aws.Float32(98.76),
		}},
	}}

	matches, err := New(client).SearchFacesByImage(context.Background(), patient.SearchInput{
		CollectionID: "patients",
		Image:        []byte("img"),
		Threshold:    95,
		MaxFaces:     1,
	})
	if err != nil {
		t.Fatalf("SearchFacesByImage: %v", err)
	}

	in := client.searchInput
	if aws.ToFloat32(in.FaceMatchThreshold) != 95 || aws.ToInt32(in.MaxFaces) != 1 {
		t.Errorf("unexpected input: threshold=%v max=%d", aws.ToFloat32(in.FaceMatchThreshold), aws.ToInt32(in.MaxFaces))
	}
	if len(matches) != 1 || matches[0].FaceID != "3f1c-face" || matches[0].Similarity != 98.76 {
		t.Errorf("unexpected matches: %+v", matches)
	}
}

func TestSearchFacesByImage_WrapsError(t *testing.T) {
	boom := &types.InvalidParameterException{Message: aws.String("There are no faces in the image.")}
	_, err := New(&fakeClient{err: boom}).SearchFacesByImage(context.Background(), patient.SearchInput{CollectionID: "patients"})

	var invalid *types.InvalidParameterException
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidParameterException in chain, got %v", err)
	}
}

func TestCreateCollection(t *testing.T) {
	exists := &types.ResourceAlreadyExistsException{Message: aws.String("exists")}
	if err := New(&fakeClient{createErr: exists}).CreateCollection(context.Background(), "patients"); err != nil {
		t.Errorf("expected existing collection to be tolerated, got %v", err)
	}

	denied := errors.New("AccessDeniedException")
	if err := New(&fakeClient{createErr: denied}).CreateCollection(context.Background(), "patients"); !errors.Is(err, denied) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
