// Package taskfile loads import task definitions from YAML files, so tasks
// can be kept under version control and applied with the task-load command.
//
//	tasks:
//	  - code: tech-news
//	    title: Tech news
//	    link: https://example.com/feed.xml
//	    reader: rss
//	    importer: article
//	    period: 3600
//	    importer_options:
//	      item_hash_id_fields: [id]
//	      fields:
//	        summary:
//	          key: description
//	          fallback_keys: [content]
package taskfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/feedimport/internal/entities"
)

type File struct {
	Tasks []Definition `yaml:"tasks"`
}

// Definition is one task as written in a task file.
type Definition struct {
	Code           string                   `yaml:"code"`
	Title          string                   `yaml:"title"`
	Link           string                   `yaml:"link"`
	PaginatedLink  bool                     `yaml:"paginated_link"`
	PageParameter  string                   `yaml:"page_parameter"`
	FirstPageValue int                      `yaml:"first_page_value"`
	Reader         string                   `yaml:"reader"`
	ReaderOptions  map[string]any           `yaml:"reader_options"`
	Importer       string                   `yaml:"importer"`
	Options        entities.ImporterOptions `yaml:"importer_options"`
	Period         *int                     `yaml:"period"`
	Active         *bool                    `yaml:"active"`
}

// DefinitionError reports an invalid task of a file by its position.
type DefinitionError struct {
	Index int
	Code  string
	Err   error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("task #%d (%s): %v", e.Index+1, e.Code, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// Load reads and validates the task file at path.
func Load(path string) ([]*entities.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a task file and converts every definition to a task.
// Every definition must carry a unique code.
func Parse(r io.Reader) ([]*entities.Task, error) {
	var file File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode task file: %w", err)
	}

	seen := map[string]bool{}
	tasks := make([]*entities.Task, 0, len(file.Tasks))
	for i, def := range file.Tasks {
		if def.Code == "" {
			return nil, &DefinitionError{Index: i, Err: errors.New("code is required")}
		}
		if seen[def.Code] {
			return nil, &DefinitionError{Index: i, Code: def.Code, Err: errors.New("duplicate code")}
		}
		seen[def.Code] = true

		task, err := def.Task()
		if err != nil {
			return nil, &DefinitionError{Index: i, Code: def.Code, Err: err}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Task converts the definition to a validated task.
func (d Definition) Task() (*entities.Task, error) {
	task := &entities.Task{
		Code:           d.Code,
		Title:          d.Title,
		Link:           d.Link,
		PaginatedLink:  d.PaginatedLink,
		PageParameter:  d.PageParameter,
		FirstPageValue: d.FirstPageValue,
		ReaderCode:     d.Reader,
		ImporterCode:   d.Importer,
		Period:         d.Period,
		Active:         d.Active == nil || *d.Active,
	}
	if err := d.Options.Validate(); err != nil {
		return nil, err
	}
	if err := task.SetImporterOptions(d.Options); err != nil {
		return nil, err
	}
	if len(d.ReaderOptions) > 0 {
		if err := task.SetReaderOptions(d.ReaderOptions); err != nil {
			return nil, err
		}
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}
