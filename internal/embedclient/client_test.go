package embedclient

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

type statusError struct{ code int }

func (s *statusError) Error() string  { return "status error" }
func (s *statusError) StatusCode() int { return s.code }

type fakeEngine struct {
	dims      int
	failTimes int
	lastText  string
	err       error
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	f.lastText = text
	if f.failTimes > 0 {
		f.failTimes--
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("transient")
	}
	return make([]float32, f.dims), nil
}
func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEngine) Dimensions() int { return f.dims }
func (f *fakeEngine) Name() string    { return "fake" }

type fakeTaskAwareEngine struct {
	fakeEngine
	lastTaskType string
}

func (f *fakeTaskAwareEngine) EmbedWithTask(ctx context.Context, text, taskType string) ([]float32, error) {
	f.lastTaskType = taskType
	f.lastText = text
	return make([]float32, f.dims), nil
}

func TestEmbedOne_Succeeds(t *testing.T) {
	c := New(&fakeEngine{dims: 8}, 0)
	vec, err := c.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestEmbedOne_RetriesOnTransportErrorThenSucceeds(t *testing.T) {
	engine := &fakeEngine{dims: 8, failTimes: 1}
	c := New(engine, 0)
	vec, err := c.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestEmbedOne_DoesNotRetryOn4xx(t *testing.T) {
	engine := &fakeEngine{dims: 8, failTimes: 10, err: &statusError{code: 400}}
	c := New(engine, 0)
	_, err := c.EmbedOne(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unavailable") || errors.Is(err, ErrUnavailable))
}

func TestEmbed_RejectsOversizedText(t *testing.T) {
	c := New(&fakeEngine{dims: 8}, 0)
	huge := strings.Repeat("a", maxInputTokensPerText*4+100)
	_, err := c.Embed(context.Background(), []string{huge})
	assert.Error(t, err)
}

func TestEmbed_EmptyInputReturnsNil(t *testing.T) {
	c := New(&fakeEngine{dims: 8}, 0)
	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestIsHealthy_EnginesWithoutHealthCheckerAreAssumedHealthy(t *testing.T) {
	c := New(&fakeEngine{dims: 8}, 0)
	assert.True(t, c.IsHealthy(context.Background()))
}

func TestEmbedOneForType_UsesTaskAwareEngineWhenAvailable(t *testing.T) {
	engine := &fakeTaskAwareEngine{fakeEngine: fakeEngine{dims: 8}}
	c := New(engine, 0)
	vec, err := c.EmbedOneForType(context.Background(), "func main() {}", model.TypeImplementation, false)
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", engine.lastTaskType)
}

func TestEmbedOneForType_FallsBackWhenEngineNotTaskAware(t *testing.T) {
	engine := &fakeEngine{dims: 8}
	c := New(engine, 0)
	vec, err := c.EmbedOneForType(context.Background(), "hello", model.TypeDecision, true)
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, "hello", engine.lastText)
}
