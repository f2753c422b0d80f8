package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportStatistics(t *testing.T) {
	stats := &ImportStatistics{}
	stats.SetAll(10).
		IncrementSkipped(1).
		IncrementScheduled(2).
		IncrementDuplicates(1).
		IncrementCreated(3).
		IncrementUpdated(1).
		IncrementDeleted(1).
		IncrementErrors(1)

	assert.Equal(t, ImportStatistics{
		All: 10, Skipped: 1, Scheduled: 2, Duplicates: 1,
		Created: 3, Updated: 1, Deleted: 1, Errors: 1,
	}, *stats)

	stats.IncrementAll(5)
	assert.Equal(t, 15, stats.All)

	stats.Reset()
	assert.Equal(t, ImportStatistics{}, *stats)
}

func TestImportStatistics_Record(t *testing.T) {
	stats := &ImportStatistics{}
	for _, status := range []ItemStatus{
		ItemStatusCreated, ItemStatusCreated, ItemStatusUpdated, ItemStatusSkipped,
		ItemStatusError, ItemStatusDataError, ItemStatusDuplicate, ItemStatusScheduled,
	} {
		stats.Record(status)
	}
	assert.Equal(t, ImportStatistics{
		Created: 2, Updated: 1, Skipped: 1, Errors: 2, Duplicates: 1, Scheduled: 1,
	}, *stats)
}

func TestImporterOptions(t *testing.T) {
	opts := ImporterOptions{}
	assert.ErrorIs(t, opts.Validate(), ErrNoIdentityFields)

	opts.SetItemHashIDFieldsString(" id , ,guid")
	assert.Equal(t, []string{"id", "guid"}, opts.ItemHashIDFields)
	assert.Equal(t, "id,guid", opts.ItemHashIDFieldsString())
	assert.NoError(t, opts.Validate())

	assert.Equal(t, FieldOptions{}, opts.FieldOptionsFor("title"))
	opts.Fields = map[string]FieldOptions{"title": {Key: "name"}}
	assert.Equal(t, "name", opts.FieldOptionsFor("title").Key)
}
