// Package articles persists the articles produced by the article importer.
//
// Store implements importers.ObjectStore: form data is decoded onto an
// article through its `form` tags, validated and buffered in the shared
// database.UnitOfWork until the import run flushes.
package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/mrlokans/feedimport/internal/database"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
)

const table = "articles"

// timeLayouts are tried in order when a form value holds a date string.
var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	timePtrType = reflect.TypeOf((*time.Time)(nil))
)

type Store struct {
	db       *gorm.DB
	uow      *database.UnitOfWork
	validate *validator.Validate
}

func NewStore(db *gorm.DB, uow *database.UnitOfWork) *Store {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Store{db: db, uow: uow, validate: validate}
}

func (s *Store) Type() string {
	return entities.ArticleObjectType
}

func (s *Store) New() importers.Object {
	return entities.NewArticle()
}

// Find returns a buffered or stored article.
func (s *Store) Find(ctx context.Context, id string) (importers.Object, error) {
	if pending, ok := s.uow.Pending(database.Key(table, id)); ok {
		return pending.(*entities.Article), nil
	}

	var article entities.Article
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, importers.ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// FindByLink returns the article with the given link, or nil.
func (s *Store) FindByLink(ctx context.Context, link string) (*entities.Article, error) {
	if link == "" {
		return nil, nil
	}

	var found *entities.Article
	s.uow.Range(func(_ string, model any) bool {
		if article, ok := model.(*entities.Article); ok && article.Link == link {
			found = article
			return false
		}
		return true
	})
	if found != nil {
		return found, nil
	}

	var article entities.Article
	err := s.db.WithContext(ctx).Where("link = ?", link).Order("created_at ASC").First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// ProcessForm decodes form data onto the article and validates the result.
// The article is only modified when the form is valid.
func (s *Store) ProcessForm(obj importers.Object, data map[string]any, opts importers.FormOptions) error {
	article, ok := obj.(*entities.Article)
	if !ok {
		return fmt.Errorf("articles store cannot process %T", obj)
	}

	var draft entities.Article
	if opts.ClearMissing {
		draft = entities.Article{ID: article.ID, CreatedAt: article.CreatedAt, UpdatedAt: article.UpdatedAt}
	} else {
		draft = *article
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		DecodeHook:       timeDecodeHook,
		Result:           &draft,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(data); err != nil {
		return &importers.ValidationError{Fields: decodeErrorFields(err)}
	}

	if err := s.validate.Struct(&draft); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldName(fe.Namespace())] = validationMessage(fe)
		}
		return &importers.ValidationError{Fields: fields}
	}

	*article = draft
	return nil
}

// Save buffers the article and flushes the unit of work when asked.
func (s *Store) Save(ctx context.Context, obj importers.Object, flush bool) error {
	article, ok := obj.(*entities.Article)
	if !ok {
		return fmt.Errorf("articles store cannot save %T", obj)
	}

	now := time.Now()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now

	s.uow.Persist(database.Key(table, article.ID), article)
	if flush {
		return s.uow.Flush(ctx)
	}
	return nil
}

// Count returns the number of stored articles.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entities.Article{}).Count(&count).Error
	return count, err
}

// timeDecodeHook converts date strings and unix timestamps for time.Time
// and *time.Time fields. Empty input clears the field.
func timeDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType && to != timePtrType {
		return data, nil
	}
	empty := func() any {
		if to == timePtrType {
			return nil
		}
		return time.Time{}
	}

	switch v := data.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return empty(), nil
		}
		return *v, nil
	case string:
		value := strings.TrimSpace(v)
		if value == "" {
			return empty(), nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		if seconds, err := cast.ToInt64E(value); err == nil {
			return time.Unix(seconds, 0).UTC(), nil
		}
		return nil, fmt.Errorf("cannot parse %q as a date", value)
	case json.Number:
		seconds, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("cannot parse %s as a unix timestamp", v)
		}
		return time.Unix(seconds, 0).UTC(), nil
	case int, int32, int64, float64:
		return time.Unix(cast.ToInt64(v), 0).UTC(), nil
	}
	return data, nil
}

func decodeErrorFields(err error) map[string]string {
	var merr *mapstructure.Error
	if !errors.As(err, &merr) {
		return map[string]string{"form": err.Error()}
	}
	fields := make(map[string]string, len(merr.Errors))
	for _, msg := range merr.Errors {
		name := "form"
		if start := strings.Index(msg, "'"); start >= 0 {
			if end := strings.Index(msg[start+1:], "'"); end >= 0 {
				name = msg[start+1 : start+1+end]
			}
		}
		fields[name] = msg
	}
	return fields
}

// fieldName drops the struct name from a validator namespace.
func fieldName(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "max":
		return "This value is too long. It should have " + fe.Param() + " characters or less."
	case "url":
		return "This value is not a valid URL."
	case "email":
		return "This value is not a valid email address."
	case "gte":
		return "This value should be greater than or equal to " + fe.Param() + "."
	case "lte":
		return "This value should be less than or equal to " + fe.Param() + "."
	default:
		return "This value is not valid."
	}
}
