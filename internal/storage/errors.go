package storage

import "errors"

var (
	// ErrPricingConfigNotFound is returned when a provider has no pricing config
	ErrPricingConfigNotFound = errors.New("pricing config not found")

	// ErrScheduleEntryNotFound is returned when a schedule entry is not found
	ErrScheduleEntryNotFound = errors.New("schedule entry not found")

	// ErrUsageRowNotFound is returned when a usage row is not found
	ErrUsageRowNotFound = errors.New("usage row not found")
)
