package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"github.com/mrlokans/feedimport/internal/hashing"
)

const (
	DefaultPageParameter  = "{page}"
	DefaultFirstPageValue = 1

	// MinPeriod is the shortest allowed schedule, in seconds.
	MinPeriod = 1800

	PeriodHourly     = 3600
	PeriodFourHours  = 14400
	PeriodEightHours = 28800
	PeriodTwiceDaily = 43200
	PeriodDaily      = 86400
)

// PeriodPresets lists the schedule periods offered to operators, in seconds.
var PeriodPresets = []int{PeriodHourly, PeriodFourHours, PeriodEightHours, PeriodTwiceDaily, PeriodDaily}

var taskValidator = validator.New()

// TaskValidationError lists the task fields that failed validation.
type TaskValidationError struct {
	Fields map[string]string
}

func (e *TaskValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid task: " + strings.Join(parts, "; ")
}

// Task is a schedulable import job: one source link read by one reader and
// mapped by one importer.
type Task struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Code  string `gorm:"uniqueIndex;size:100" json:"code" validate:"omitempty,max=100"`
	Title string `gorm:"size:255" json:"title" validate:"required,max=255"`

	Link           string `gorm:"type:text" json:"link" validate:"required"`
	PaginatedLink  bool   `json:"paginated_link"`
	PageParameter  string `gorm:"size:50" json:"page_parameter,omitempty"`
	FirstPageValue int    `json:"first_page_value"`

	ImporterCode        string         `gorm:"size:50" json:"importer_code" validate:"required"`
	ImporterOptions     datatypes.JSON `json:"importer_options,omitempty"`
	ImporterOptionsHash string         `gorm:"size:40" json:"importer_options_hash,omitempty"`

	ReaderCode    string         `gorm:"size:50" json:"reader_code" validate:"required"`
	ReaderOptions datatypes.JSON `json:"reader_options,omitempty"`

	// Period is the schedule in seconds; nil means the task only runs on demand.
	Period     *int           `json:"period,omitempty" validate:"omitempty,gte=1800"`
	Active     bool           `gorm:"index" json:"active"`
	InProgress bool           `gorm:"index" json:"in_progress"`
	ImportedAt *time.Time     `gorm:"index" json:"imported_at,omitempty"`
	Statistics datatypes.JSON `json:"statistics,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) PageParameterOrDefault() string {
	if t.PageParameter == "" {
		return DefaultPageParameter
	}
	return t.PageParameter
}

func (t *Task) FirstPage() int {
	if t.FirstPageValue == 0 {
		return DefaultFirstPageValue
	}
	return t.FirstPageValue
}

// PreparedLink returns the link for the given page. Non paginated links are
// returned unchanged.
func (t *Task) PreparedLink(page int) string {
	if !t.PaginatedLink {
		return t.Link
	}
	return strings.ReplaceAll(t.Link, t.PageParameterOrDefault(), fmt.Sprint(page))
}

// IsScheduled reports whether the task runs periodically.
func (t *Task) IsScheduled() bool {
	return t.Period != nil
}

func (t *Task) PeriodDuration() time.Duration {
	if t.Period == nil {
		return 0
	}
	return time.Duration(*t.Period) * time.Second
}

// IsDue mirrors the due-task query for a single task.
func (t *Task) IsDue(now time.Time, staleTimeout time.Duration) bool {
	if !t.Active || t.Period == nil {
		return false
	}
	if t.ImportedAt == nil {
		return !t.InProgress
	}
	if t.ImportedAt.Add(t.PeriodDuration()).After(now) {
		return false
	}
	return !t.InProgress || !t.ImportedAt.Add(staleTimeout).After(now)
}

// SetImporterOptions stores the options and recomputes the configuration hash.
func (t *Task) SetImporterOptions(opts ImporterOptions) error {
	encoded, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode importer options: %w", err)
	}
	t.ImporterOptions = datatypes.JSON(encoded)
	t.ImporterOptionsHash = hashing.Config(opts)
	return nil
}

// GetImporterOptions decodes the stored importer options.
func (t *Task) GetImporterOptions() (ImporterOptions, error) {
	var opts ImporterOptions
	if len(t.ImporterOptions) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(t.ImporterOptions, &opts); err != nil {
		return opts, fmt.Errorf("failed to decode importer options: %w", err)
	}
	return opts, nil
}

func (t *Task) SetReaderOptions(opts any) error {
	if opts == nil {
		t.ReaderOptions = nil
		return nil
	}
	encoded, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode reader options: %w", err)
	}
	t.ReaderOptions = datatypes.JSON(encoded)
	return nil
}

// DecodeReaderOptions decodes the stored reader options into dst.
// Missing options leave dst untouched.
func (t *Task) DecodeReaderOptions(dst any) error {
	if len(t.ReaderOptions) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.ReaderOptions, dst); err != nil {
		return fmt.Errorf("failed to decode reader options: %w", err)
	}
	return nil
}

func (t *Task) GetStatistics() ImportStatistics {
	var stats ImportStatistics
	if len(t.Statistics) > 0 {
		_ = json.Unmarshal(t.Statistics, &stats)
	}
	return stats
}

func (t *Task) SetStatistics(stats ImportStatistics) {
	encoded, _ := json.Marshal(stats)
	t.Statistics = datatypes.JSON(encoded)
}

// MarkStarted flags the task as running from now on.
func (t *Task) MarkStarted(now time.Time) {
	t.InProgress = true
	t.ImportedAt = &now
}

// MarkFinished clears the running flag and stores the run statistics.
func (t *Task) MarkFinished(stats *ImportStatistics) {
	t.InProgress = false
	if stats != nil {
		t.SetStatistics(*stats)
	}
}

// Validate checks the task configuration.
func (t *Task) Validate() error {
	fields := map[string]string{}

	if err := taskValidator.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	}

	if t.PaginatedLink && !strings.Contains(t.Link, t.PageParameterOrDefault()) {
		fields["Link"] = fmt.Sprintf("paginated link must contain %q", t.PageParameterOrDefault())
	}

	if len(t.ImporterOptions) > 0 {
		opts, err := t.GetImporterOptions()
		if err != nil {
			fields["ImporterOptions"] = err.Error()
		} else if err := opts.Validate(); err != nil {
			fields["ImporterOptions"] = err.Error()
		}
	}

	if len(fields) > 0 {
		return &TaskValidationError{Fields: fields}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
