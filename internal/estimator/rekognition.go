package estimator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/MeKo-Tech/facescan/internal/attributes"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/disintegration/imaging"
)

type detectFacesAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput,
		optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Rekognition estimates age and gender with AWS Rekognition DetectFaces.
// Race is not offered by the service.
type Rekognition struct {
	client detectFacesAPI

	mu       sync.Mutex
	lastSrc  image.Image
	lastFace *types.FaceDetail
	lastErr  error
}

// NewRekognition loads the default AWS configuration for the region and
// creates a client.
func NewRekognition(ctx context.Context, cfg RekognitionConfig) (*Rekognition, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newRekognitionWithClient(rekognition.NewFromConfig(awsCfg)), nil
}

func newRekognitionWithClient(client detectFacesAPI) *Rekognition {
	return &Rekognition{client: client}
}

// detect returns the largest face in img, reusing the previous response when
// img is the same image as the last call.
func (r *Rekognition) detect(ctx context.Context, img image.Image) (*types.FaceDetail, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastSrc != nil && r.lastSrc == img {
		return r.lastFace, r.lastErr
	}

	face, err := r.detectFaces(ctx, img)
	r.lastSrc, r.lastFace, r.lastErr = img, face, err
	return face, err
}

func (r *Rekognition) detectFaces(ctx context.Context, img image.Image) (*types.FaceDetail, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	out, err := r.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: buf.Bytes()},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	return largestFace(out.FaceDetails)
}

func largestFace(faces []types.FaceDetail) (*types.FaceDetail, error) {
	var best *types.FaceDetail
	var bestArea float32 = -1
	for i := range faces {
		area := float32(0)
		if bb := faces[i].BoundingBox; bb != nil && bb.Width != nil && bb.Height != nil {
			area = *bb.Width * *bb.Height
		}
		if area > bestArea {
			best, bestArea = &faces[i], area
		}
	}
	if best == nil {
		return nil, ErrNoFace
	}
	return best, nil
}

// EstimateAge returns the midpoint of the reported age range.
func (r *Rekognition) EstimateAge(ctx context.Context, img image.Image) (float64, error) {
	face, err := r.detect(ctx, img)
	if err != nil {
		return 0, err
	}
	ar := face.AgeRange
	if ar == nil || ar.Low == nil || ar.High == nil {
		return 0, errors.New("age range missing from response")
	}
	return float64(*ar.Low+*ar.High) / 2, nil
}

// EstimateGender converts the binary gender prediction and its confidence
// into a two-label distribution.
func (r *Rekognition) EstimateGender(ctx context.Context, img image.Image) (attributes.Distribution, error) {
	face, err := r.detect(ctx, img)
	if err != nil {
		return nil, err
	}
	g := face.Gender
	if g == nil || g.Confidence == nil {
		return nil, errors.New("gender missing from response")
	}
	c := float64(*g.Confidence) / 100

	var woman float64
	switch g.Value {
	case types.GenderTypeFemale:
		woman = c
	case types.GenderTypeMale:
		woman = 1 - c
	default:
		return nil, fmt.Errorf("unknown gender value %q", g.Value)
	}
	return attributes.NewDistribution(attributes.GenderLabels, []float64{woman, 1 - woman}), nil
}

// EstimateRace always fails with ErrUnsupported.
func (r *Rekognition) EstimateRace(context.Context, image.Image) (attributes.Distribution, error) {
	return nil, fmt.Errorf("rekognition race: %w", ErrUnsupported)
}

// Close drops the cached response.
func (r *Rekognition) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSrc, r.lastFace, r.lastErr = nil, nil, nil
	return nil
}
