package questionbank

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/cache"
	apperrors "github.com/SAP-F-2025/screening-service/internal/errors"
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const englishBank = `[
  {"id": 1, "title": "Which day is it?", "type": "SINGLE_CHOICE", "category": "Attention & Orientation",
   "options": ["Monday", "Tuesday"], "correctOptionIndex": 1},
  {"id": 2, "title": "Repeat the phrase", "type": "TEXT", "correctTextAnswers": ["no ifs ands or buts"]},
  {"id": 3, "title": "Say the words", "type": "AUDIO", "score": 2, "correctTextAnswers": ["apple", "penny"]}
]`

const hindiBank = `[
  {"id": 1, "title": "आज कौन सा दिन है?", "type": "SINGLE_CHOICE", "options": ["सोमवार"], "correctOptionIndex": 0}
]`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoader(files fstest.MapFS, opts ...Option) Loader {
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return NewLoader(files, "en", validator.New(), opts...)
}

func TestLoader_Load(t *testing.T) {
	loader := newTestLoader(fstest.MapFS{
		"questions_en.json": {Data: []byte(englishBank)},
		"questions_hi.json": {Data: []byte(hindiBank)},
	})

	set, err := loader.Load(context.Background(), "en")
	require.NoError(t, err)
	require.Len(t, set.Questions, 3)
	assert.Equal(t, "en", set.Language)
	assert.Equal(t, models.SingleChoice, set.Questions[0].Type)
	assert.Equal(t, models.DefaultMaxScore, set.Questions[0].MaxScore)
	assert.Equal(t, 2, set.Questions[2].MaxScore)

	hi, err := loader.Load(context.Background(), " HI ")
	require.NoError(t, err)
	assert.Equal(t, "hi", hi.Language)
	assert.Len(t, hi.Questions, 1)
}

func TestLoader_FallsBackToDefaultLanguage(t *testing.T) {
	loader := newTestLoader(fstest.MapFS{"questions_en.json": {Data: []byte(englishBank)}})

	set, err := loader.Load(context.Background(), "fr")
	require.NoError(t, err)
	assert.Equal(t, "en", set.Language)

	set, err = loader.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "en", set.Language)
}

func TestLoader_MissingDefault(t *testing.T) {
	loader := newTestLoader(fstest.MapFS{})

	_, err := loader.Load(context.Background(), "en")
	assert.ErrorIs(t, err, ErrLanguageNotFound)
}

func TestLoader_InvalidBank(t *testing.T) {
	loader := newTestLoader(fstest.MapFS{"questions_en.json": {Data: []byte(`[
	  {"id": 1, "title": "a", "type": "SINGLE_CHOICE", "options": ["x"], "correctOptionIndex": 4},
	  {"id": 1, "title": "b", "type": "TEXT", "correctTextAnswers": ["y"]}
	]`)}})

	_, err := loader.Load(context.Background(), "en")
	require.Error(t, err)

	var verrs apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "questions[0].correctOptionIndex")
	assert.Contains(t, fields, "questions[1].id")
}

func TestLoader_MalformedJSON(t *testing.T) {
	loader := newTestLoader(fstest.MapFS{"questions_en.json": {Data: []byte(`{"id": 1}`)}})

	_, err := loader.Load(context.Background(), "en")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLanguageNotFound)
}

func TestLoader_Languages(t *testing.T) {
	loader := newTestLoader(fstest.MapFS{
		"questions_hi.json": {Data: []byte(hindiBank)},
		"questions_en.json": {Data: []byte(englishBank)},
		"readme.txt":        {Data: []byte("x")},
	})

	langs, err := loader.Languages()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "hi"}, langs)
}

type memoryCache struct {
	values map[string]models.QuestionSet
	gets   int
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.values[key] = *value.(*models.QuestionSet)
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.gets++
	v, ok := m.values[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	*dest.(*models.QuestionSet) = v
	return nil
}

func (m *memoryCache) Delete(context.Context, string) error        { return nil }
func (m *memoryCache) DeletePattern(context.Context, string) error { return nil }

func TestLoader_UsesCache(t *testing.T) {
	c := &memoryCache{values: map[string]models.QuestionSet{}}
	files := fstest.MapFS{"questions_en.json": {Data: []byte(englishBank)}}

	first := newTestLoader(files, WithCache(c, time.Minute))
	_, err := first.Load(context.Background(), "en")
	require.NoError(t, err)
	require.Contains(t, c.values, "questionbank:en")

	// A second replica reads the cached copy even though its own files are gone.
	second := newTestLoader(fstest.MapFS{}, WithCache(c, time.Minute))
	set, err := second.Load(context.Background(), "en")
	require.NoError(t, err)
	assert.Len(t, set.Questions, 3)
}
