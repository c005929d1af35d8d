package models

import "fmt"

// ConfigurationError indicates a catalog invariant violation. It is fatal
// and aborts a run before any fetch is attempted.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// IsTransient returns false; configuration errors require operator action.
func (e *ConfigurationError) IsTransient() bool {
	return false
}

// FetchError indicates a transport-level or application-level DataSource
// failure for one region. The failing region is skipped; other regions
// still complete.
type FetchError struct {
	Region  Region
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed for region %s: %s: %v", e.Region, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch failed for region %s: %s", e.Region, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient returns true; upstream fetch failures typically resolve on a
// later run.
func (e *FetchError) IsTransient() bool {
	return true
}

// MalformedPeriodError indicates a period code that does not parse. The
// owning series fails normalization as a whole: an unparseable period breaks
// the sort contract, so no ordering can be trusted for that series.
type MalformedPeriodError struct {
	SeriesID string
	Year     string
	Period   string
}

func (e *MalformedPeriodError) Error() string {
	return fmt.Sprintf("series %s: malformed period %q (year %s)", e.SeriesID, e.Period, e.Year)
}

func (e *MalformedPeriodError) IsTransient() bool {
	return false
}

// MalformedValueError indicates a value that fails decimal parsing. Only the
// offending point is dropped; the rest of the series continues.
type MalformedValueError struct {
	SeriesID string
	MonthKey string
	Value    string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("series %s: malformed value %q at %s", e.SeriesID, e.Value, e.MonthKey)
}

func (e *MalformedValueError) IsTransient() bool {
	return false
}

// PersistenceError indicates a failed projection write. Writes are
// independent: remaining keys are still attempted, but the run as a whole
// fails if any required projection could not be persisted.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) IsTransient() bool {
	return true
}
