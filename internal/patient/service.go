// Package patient implements patient face registration and identification.
//
// Both operations take a Request and always return a Response: business rejections
// become 404/422 messages, every other problem becomes a 500 failure carrying the
// error text. Nothing propagates past the handler boundary, panics included.
package patient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kozaktomas/patient-face-id/internal/database"
	"github.com/kozaktomas/patient-face-id/internal/imaging"
)

// Options configures a Service.
type Options struct {
	CollectionID   string
	TableName      string
	FaceIndexName  string
	MatchThreshold float64 // similarity percentage, 0-100
	QualityFilter  string
	MaxImageSize   int // 0 keeps images at their original size
}

// Service runs the registration and identification flows against injected collaborators.
type Service struct {
	recognizer Recognizer
	store      database.PatientStore
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(recognizer Recognizer, store database.PatientStore, opts Options, options ...Option) *Service {
	if opts.FaceIndexName == "" {
		opts.FaceIndexName = database.DefaultFaceIndexName
	}
	if opts.QualityFilter == "" {
		opts.QualityFilter = "AUTO"
	}
	s := &Service{
		recognizer: recognizer,
		store:      store,
		opts:       opts,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Register indexes the face in the request and stores the patient record.
func (s *Service) Register(ctx context.Context, req Request) (resp Response) {
	defer s.recoverFailure(ctx, "register", &resp)

	out, err := s.register(ctx, req)
	if err != nil {
		return s.failure(ctx, "register", err)
	}
	return out
}

func (s *Service) register(ctx context.Context, req Request) (Response, error) {
	body, err := parseBody(req.Body)
	if err != nil {
		return Response{}, err
	}
	image, err := decodeImage(body)
	if err != nil {
		return Response{}, err
	}
	patientID, err := requiredString(body, fieldPatientID)
	if err != nil {
		return Response{}, err
	}
	attrs, err := attributes(body)
	if err != nil {
		return Response{}, err
	}

	image, err = s.prepareImage(image)
	if err != nil {
		return Response{}, err
	}

	faces, err := s.recognizer.IndexFaces(ctx, IndexFacesInput{
		CollectionID:    s.opts.CollectionID,
		Image:           image,
		ExternalImageID: patientID,
		MaxFaces:        1,
		QualityFilter:   s.opts.QualityFilter,
	})
	if err != nil {
		return Response{}, fmt.Errorf("index face: %w", err)
	}
	if len(faces) == 0 {
		return messageResponse(http.StatusUnprocessableEntity, MessageNoFace), nil
	}

	faceID := faces[0].FaceID
	now := s.now().UnixMilli()
	record := database.PatientRecord{
		PatientID:  patientID,
		FaceID:     faceID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Attributes: database.StringAttributes(attrs),
	}
	if err := s.store.PutRecord(ctx, s.opts.TableName, record); err != nil {
		return Response{}, fmt.Errorf("put record: %w", err)
	}

	return jsonResponse(http.StatusCreated, map[string]string{
		database.FieldPatientID: patientID,
		database.FieldFaceID:    faceID,
	}), nil
}

// Identify searches the collection for the face in the request and returns the linked record.
func (s *Service) Identify(ctx context.Context, req Request) (resp Response) {
	defer s.recoverFailure(ctx, "identify", &resp)

	out, err := s.identify(ctx, req)
	if err != nil {
		return s.failure(ctx, "identify", err)
	}
	return out
}

func (s *Service) identify(ctx context.Context, req Request) (Response, error) {
	body, err := parseBody(req.Body)
	if err != nil {
		return Response{}, err
	}
	image, err := decodeImage(body)
	if err != nil {
		return Response{}, err
	}
	image, err = s.prepareImage(image)
	if err != nil {
		return Response{}, err
	}

	matches, err := s.recognizer.SearchFacesByImage(ctx, SearchInput{
		CollectionID: s.opts.CollectionID,
		Image:        image,
		Threshold:    s.opts.MatchThreshold,
		MaxFaces:     1,
	})
	if err != nil {
		return Response{}, fmt.Errorf("search faces: %w", err)
	}
	if len(matches) == 0 {
		return messageResponse(http.StatusNotFound, MessageNoMatch), nil
	}

	match := matches[0]
	records, err := s.store.QueryByIndex(ctx, s.opts.TableName, s.opts.FaceIndexName,
		database.FieldFaceID, match.FaceID, 1)
	if err != nil {
		return Response{}, fmt.Errorf("query record: %w", err)
	}
	if len(records) == 0 {
		return messageResponse(http.StatusNotFound, MessageNoPatientRecord), nil
	}

	result := records[0].Fields()
	result["similarity"] = match.Similarity
	return jsonResponse(http.StatusOK, result), nil
}

func (s *Service) prepareImage(image []byte) ([]byte, error) {
	if s.opts.MaxImageSize <= 0 {
		return image, nil
	}
	out, err := imaging.Normalize(image, s.opts.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}
	return out, nil
}

func (s *Service) failure(ctx context.Context, op string, err error) Response {
	s.logger.ErrorContext(ctx, "patient request failed", "operation", op, "error", err)
	return ErrorResponse(err)
}

func (s *Service) recoverFailure(ctx context.Context, op string, resp *Response) {
	if r := recover(); r != nil {
		*resp = s.failure(ctx, op, fmt.Errorf("panic: %v", r))
	}
}
