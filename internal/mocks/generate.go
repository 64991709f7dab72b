// Package mocks provides generated mock implementations for the
// reconciliation ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks.
// Hand-written doubles for simpler scripting live in internal/mocks/identity.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for ProfileStore interface from internal/ports.
// This creates MockProfileStore with methods: FetchByUserID, Insert.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/commercekit/storefront-identity/internal/ports ProfileStore
