package entities

// ImportStatistics holds the counters of a single import run.
// The counters are independent: All is the number of records read, not the
// sum of the other counters.
type ImportStatistics struct {
	All        int `json:"all"`
	Skipped    int `json:"skipped"`
	Scheduled  int `json:"scheduled"`
	Duplicates int `json:"duplicates"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Deleted    int `json:"deleted"`
	Errors     int `json:"errors"`
}

// Reset zeroes every counter.
func (s *ImportStatistics) Reset() *ImportStatistics {
	*s = ImportStatistics{}
	return s
}

// SetAll sets the number of records expected in the run.
func (s *ImportStatistics) SetAll(all int) *ImportStatistics {
	s.All = all
	return s
}

func (s *ImportStatistics) IncrementAll(count int) *ImportStatistics {
	s.All += count
	return s
}

func (s *ImportStatistics) IncrementSkipped(count int) *ImportStatistics {
	s.Skipped += count
	return s
}

func (s *ImportStatistics) IncrementScheduled(count int) *ImportStatistics {
	s.Scheduled += count
	return s
}

func (s *ImportStatistics) IncrementDuplicates(count int) *ImportStatistics {
	s.Duplicates += count
	return s
}

func (s *ImportStatistics) IncrementCreated(count int) *ImportStatistics {
	s.Created += count
	return s
}

func (s *ImportStatistics) IncrementUpdated(count int) *ImportStatistics {
	s.Updated += count
	return s
}

func (s *ImportStatistics) IncrementDeleted(count int) *ImportStatistics {
	s.Deleted += count
	return s
}

func (s *ImportStatistics) IncrementErrors(count int) *ImportStatistics {
	s.Errors += count
	return s
}

// Record increments the counter matching a ledger status.
func (s *ImportStatistics) Record(status ItemStatus) *ImportStatistics {
	switch status {
	case ItemStatusSkipped:
		s.Skipped++
	case ItemStatusCreated:
		s.Created++
	case ItemStatusUpdated:
		s.Updated++
	case ItemStatusDeleted:
		s.Deleted++
	case ItemStatusError, ItemStatusDataError:
		s.Errors++
	case ItemStatusScheduled:
		s.Scheduled++
	case ItemStatusDuplicate:
		s.Duplicates++
	}
	return s
}
