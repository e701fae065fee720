package mocks

// Mock generation directives. Run `make mocks` or `go generate ./internal/mocks/` to regenerate.

//go:generate go run go.uber.org/mock/mockgen -source=../core/metrics.go -destination=mock_metrics.go -package=mocks
//go:generate go run go.uber.org/mock/mockgen -source=../core/storage.go -destination=mock_storage.go -package=mocks
//go:generate go run go.uber.org/mock/mockgen -source=../core/catalog.go -destination=mock_catalog.go -package=mocks
//go:generate go run go.uber.org/mock/mockgen -source=../core/ratelimit.go -destination=mock_ratelimit.go -package=mocks
