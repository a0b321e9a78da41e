// Package questionbank loads the per-language question files.
package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/cache"
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/validator"
)

var ErrLanguageNotFound = errors.New("question bank language not found")

const (
	filePrefix = "questions_"
	fileSuffix = ".json"
	cacheKey   = "questionbank:"
)

// Loader returns validated question sets by language.
type Loader interface {
	Load(ctx context.Context, language string) (*models.QuestionSet, error)
	Languages() ([]string, error)
}

type Option func(*fsLoader)

// WithCache stores loaded sets in a shared cache so other replicas skip parsing.
func WithCache(c cache.CacheService, ttl time.Duration) Option {
	return func(l *fsLoader) {
		l.cache = c
		l.ttl = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *fsLoader) { l.logger = logger }
}

type fsLoader struct {
	fsys            fs.FS
	defaultLanguage string
	validator       *validator.QuestionValidator
	cache           cache.CacheService
	ttl             time.Duration
	logger          *slog.Logger

	mu     sync.RWMutex
	loaded map[string]*models.QuestionSet
}

// NewLoader reads questions_<language>.json files from fsys. A language without a file
// falls back to defaultLanguage.
func NewLoader(fsys fs.FS, defaultLanguage string, v *validator.Validator, opts ...Option) Loader {
	l := &fsLoader{
		fsys:            fsys,
		defaultLanguage: normalizeLanguage(defaultLanguage),
		validator:       v.Question(),
		logger:          slog.Default(),
		loaded:          make(map[string]*models.QuestionSet),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *fsLoader) Load(ctx context.Context, language string) (*models.QuestionSet, error) {
	language = normalizeLanguage(language)
	if language == "" {
		language = l.defaultLanguage
	}

	if set, ok := l.memo(language); ok {
		return set, nil
	}

	set, err := l.load(ctx, language)
	if errors.Is(err, ErrLanguageNotFound) && language != l.defaultLanguage {
		l.logger.Info("question bank language missing, using default",
			"language", language, "default", l.defaultLanguage)
		return l.Load(ctx, l.defaultLanguage)
	}
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.loaded[language] = set
	l.mu.Unlock()
	return set, nil
}

func (l *fsLoader) memo(language string) (*models.QuestionSet, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set, ok := l.loaded[language]
	return set, ok
}

func (l *fsLoader) load(ctx context.Context, language string) (*models.QuestionSet, error) {
	if l.cache != nil {
		var set models.QuestionSet
		err := l.cache.Get(ctx, cacheKey+language, &set)
		if err == nil {
			return &set, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.logger.Warn("question cache unavailable", "language", language, "error", err)
		}
	}

	data, err := fs.ReadFile(l.fsys, fileName(language))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLanguageNotFound, language)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank %s: %w", language, err)
	}

	set, err := Parse(data, language)
	if err != nil {
		return nil, err
	}
	if err := l.validator.ValidateSet(set); err != nil {
		return nil, fmt.Errorf("question bank %s is invalid: %w", language, err)
	}

	l.logger.Info("question bank loaded", "language", language, "questions", len(set.Questions))

	if l.cache != nil {
		if err := l.cache.Set(ctx, cacheKey+language, set, l.ttl); err != nil {
			l.logger.Warn("failed to cache question bank", "language", language, "error", err)
		}
	}
	return set, nil
}

// Languages lists the languages that have a question file.
func (l *fsLoader) Languages() ([]string, error) {
	matches, err := fs.Glob(l.fsys, filePrefix+"*"+fileSuffix)
	if err != nil {
		return nil, err
	}
	langs := make([]string, 0, len(matches))
	for _, m := range matches {
		name := path.Base(m)
		langs = append(langs, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	}
	sort.Strings(langs)
	return langs, nil
}

// Parse decodes a question file, a JSON array of questions, without validating it.
func Parse(data []byte, language string) (*models.QuestionSet, error) {
	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode question bank %s: %w", language, err)
	}
	return &models.QuestionSet{Language: language, Questions: questions}, nil
}

func fileName(language string) string {
	return filePrefix + language + fileSuffix
}

func normalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
