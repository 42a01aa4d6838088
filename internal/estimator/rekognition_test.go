package estimator

import (
	"context"
	"errors"
	"testing"

	"github.com/MeKo-Tech/facescan/internal/attributes"
	"github.com/MeKo-Tech/facescan/internal/testutil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRekognition struct {
	out   *rekognition.DetectFacesOutput
	err   error
	calls int
	input *rekognition.DetectFacesInput
}

func (f *fakeRekognition) DetectFaces(_ context.Context, in *rekognition.DetectFacesInput,
	_ ...func(*rekognition.Options),
) (*rekognition.DetectFacesOutput, error) {
	f.calls++
	f.input = in
	return f.out, f.err
}

func faceDetail(w, h float32, low, high int32, g types.GenderType, conf float32) types.FaceDetail {
	return types.FaceDetail{
		BoundingBox: &types.BoundingBox{Width: aws.Float32(w), Height: aws.Float32(h)},
		AgeRange:    &types.AgeRange{Low: aws.Int32(low), High: aws.Int32(high)},
		Gender:      &types.Gender{Value: g, Confidence: aws.Float32(conf)},
	}
}

func TestRekognition_AgeAndGender(t *testing.T) {
	client := &fakeRekognition{out: &rekognition.DetectFacesOutput{
		FaceDetails: []types.FaceDetail{
			faceDetail(0.1, 0.1, 50, 60, types.GenderTypeFemale, 99),
			faceDetail(0.4, 0.5, 24, 31, types.GenderTypeMale, 90),
		},
	}}
	r := newRekognitionWithClient(client)
	img := testutil.CreateFaceImage(40, 40)
	ctx := context.Background()

	age, err := r.EstimateAge(ctx, img)
	require.NoError(t, err)
	assert.InDelta(t, 27.5, age, 1e-9)

	gender, err := r.EstimateGender(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, "Man", gender.Label())
	man, _ := gender.Get("Man")
	woman, _ := gender.Get("Woman")
	assert.InDelta(t, 90, man, 1e-3)
	assert.InDelta(t, 10, woman, 1e-3)

	assert.Equal(t, 1, client.calls)
	require.NotNil(t, client.input)
	assert.Equal(t, []types.Attribute{types.AttributeAll}, client.input.Attributes)
	assert.NotEmpty(t, client.input.Image.Bytes)
}

func TestRekognition_FemaleConfidence(t *testing.T) {
	client := &fakeRekognition{out: &rekognition.DetectFacesOutput{
		FaceDetails: []types.FaceDetail{faceDetail(0.3, 0.3, 20, 22, types.GenderTypeFemale, 75)},
	}}
	r := newRekognitionWithClient(client)

	gender, err := r.EstimateGender(context.Background(), testutil.CreateFaceImage(20, 20))
	require.NoError(t, err)
	assert.Equal(t, "Woman", gender.Label())
	w, _ := gender.Get("Woman")
	assert.InDelta(t, 75, w, 1e-3)
}

func TestRekognition_RaceUnsupported(t *testing.T) {
	client := &fakeRekognition{}
	r := newRekognitionWithClient(client)

	_, err := r.EstimateRace(context.Background(), testutil.CreateFaceImage(20, 20))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Zero(t, client.calls)
}

func TestRekognition_NoFaces(t *testing.T) {
	r := newRekognitionWithClient(&fakeRekognition{out: &rekognition.DetectFacesOutput{}})
	_, err := r.EstimateAge(context.Background(), testutil.CreateFaceImage(20, 20))
	assert.ErrorIs(t, err, ErrNoFace)
}

func TestRekognition_APIErrorCachedPerImage(t *testing.T) {
	client := &fakeRekognition{err: errors.New("throttled")}
	r := newRekognitionWithClient(client)
	img := testutil.CreateFaceImage(20, 20)

	_, err := r.EstimateAge(context.Background(), img)
	require.Error(t, err)
	_, err = r.EstimateGender(context.Background(), img)
	require.Error(t, err)
	assert.Equal(t, 1, client.calls)

	require.NoError(t, r.Close())
	_, _ = r.EstimateAge(context.Background(), img)
	assert.Equal(t, 2, client.calls)
}

func TestRekognition_MissingFields(t *testing.T) {
	client := &fakeRekognition{out: &rekognition.DetectFacesOutput{
		FaceDetails: []types.FaceDetail{{}},
	}}
	r := newRekognitionWithClient(client)
	img := testutil.CreateFaceImage(20, 20)

	_, err := r.EstimateAge(context.Background(), img)
	assert.Error(t, err)
	_, err = r.EstimateGender(context.Background(), img)
	assert.Error(t, err)
}

func TestLargestFace(t *testing.T) {
	faces := []types.FaceDetail{
		{},
		faceDetail(0.2, 0.2, 1, 2, types.GenderTypeMale, 50),
		faceDetail(0.1, 0.1, 3, 4, types.GenderTypeMale, 50),
	}
	got, err := largestFace(faces)
	require.NoError(t, err)
	assert.Equal(t, int32(1), *got.AgeRange.Low)

	_, err = largestFace(nil)
	assert.ErrorIs(t, err, ErrNoFace)
}

func TestDistributionLabelsOrder(t *testing.T) {
	d := attributes.NewDistribution(attributes.GenderLabels, []float64{0.5, 0.5})
	assert.Equal(t, "Woman", d.Label())
}
