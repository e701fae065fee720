package catalog

import "errors"

var (
	// ErrAssetNotFound is returned when the catalog has no asset with the requested ID
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCatalogUnavailable indicates the upstream catalog could not be reached
	ErrCatalogUnavailable = errors.New("asset catalog unavailable")

	// ErrInvalidResponse indicates the upstream catalog returned an unusable payload
	ErrInvalidResponse = errors.New("invalid asset catalog response")
)
