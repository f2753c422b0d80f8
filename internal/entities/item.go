package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/mrlokans/feedimport/internal/hashing"
)

// ItemIDSeparator joins the parts of an item id.
const ItemIDSeparator = "_"

// ItemIDHashLength is how much of the data hash goes into an item id.
const ItemIDHashLength = 8

type ItemStatus int

const (
	ItemStatusSkipped   ItemStatus = 1
	ItemStatusCreated   ItemStatus = 2
	ItemStatusUpdated   ItemStatus = 3
	ItemStatusDeleted   ItemStatus = 4
	ItemStatusError     ItemStatus = 5
	ItemStatusScheduled ItemStatus = 6
	ItemStatusDuplicate ItemStatus = 7
	ItemStatusDataError ItemStatus = 8
)

var itemStatusNames = map[ItemStatus]string{
	ItemStatusSkipped:   "skipped",
	ItemStatusCreated:   "created",
	ItemStatusUpdated:   "updated",
	ItemStatusDeleted:   "deleted",
	ItemStatusError:     "error",
	ItemStatusScheduled: "scheduled",
	ItemStatusDuplicate: "duplicate",
	ItemStatusDataError: "data_error",
}

func (s ItemStatus) String() string {
	if name, ok := itemStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// IsFailure reports whether the status records a failed import.
func (s ItemStatus) IsFailure() bool {
	return s == ItemStatusError || s == ItemStatusDataError
}

// Item is the ledger entry of one source entry within one task. Its id
// depends on the payload hash, so a changed payload produces a new row and
// the previous version stays in place.
type Item struct {
	ID         string         `gorm:"primaryKey;size:120" json:"id"`
	TaskID     uint           `gorm:"index:idx_items_task_entry,priority:1;not null" json:"task_id"`
	EntryID    string         `gorm:"index:idx_items_task_entry,priority:2;size:32;not null" json:"entry_id"`
	StatusID   ItemStatus     `gorm:"index;not null" json:"status_id"`
	DataHash   string         `gorm:"size:40" json:"data_hash"`
	Data       datatypes.JSON `json:"data,omitempty"`
	Errors     datatypes.JSON `json:"errors,omitempty"`
	ConfigHash string         `gorm:"size:40" json:"config_hash"`
	TargetType string         `gorm:"size:50" json:"target_type,omitempty"`
	TargetID   string         `gorm:"size:64;index" json:"target_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// GenerateItemID builds the id of the item holding the given payload version.
func GenerateItemID(taskID uint, entryID, dataHash string) string {
	if len(dataHash) > ItemIDHashLength {
		dataHash = dataHash[:ItemIDHashLength]
	}
	return strings.Join([]string{fmt.Sprint(taskID), entryID, dataHash}, ItemIDSeparator)
}

// NewItem returns an item for the entry without any payload.
func NewItem(taskID uint, entryID string) *Item {
	item := &Item{TaskID: taskID, EntryID: entryID}
	item.ID = GenerateItemID(taskID, entryID, "")
	return item
}

// SetData stores the raw record and rekeys the item by its hash.
func (i *Item) SetData(data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode item data: %w", err)
	}
	i.Data = datatypes.JSON(encoded)
	i.DataHash = hashing.Data(data)
	if id := GenerateItemID(i.TaskID, i.EntryID, i.DataHash); id != i.ID {
		i.ID = id
		i.CreatedAt = time.Time{}
		i.UpdatedAt = time.Time{}
	}
	return nil
}

// Record decodes the stored raw record.
func (i *Item) Record() (map[string]any, error) {
	record := map[string]any{}
	if len(i.Data) == 0 {
		return record, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(i.Data))
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode item data: %w", err)
	}
	return record, nil
}

// SetErrors stores the errors of the last import attempt. Nil clears them.
func (i *Item) SetErrors(errs any) {
	if errs == nil {
		i.Errors = nil
		return
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		encoded, _ = json.Marshal([]string{fmt.Sprint(errs)})
	}
	i.Errors = datatypes.JSON(encoded)
}

// ErrorMessages flattens the stored errors into a list of messages.
func (i *Item) ErrorMessages() []string {
	if len(i.Errors) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(i.Errors, &list); err == nil {
		return list
	}
	var fields map[string]string
	if err := json.Unmarshal(i.Errors, &fields); err == nil {
		for field, msg := range fields {
			list = append(list, field+": "+msg)
		}
		return list
	}
	return []string{string(i.Errors)}
}

// SetTarget points the item at a produced object. An empty id keeps only the type.
func (i *Item) SetTarget(targetType, targetID string) {
	i.TargetType = targetType
	i.TargetID = targetID
}

// HasPersistedTarget reports whether the item references a saved object.
func (i *Item) HasPersistedTarget() bool {
	return i.TargetType != "" && i.TargetID != ""
}
