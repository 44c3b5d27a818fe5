// Package mocks provides generated mock implementations for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the identity ports. Hand-written doubles for simple cases live in
// internal/mocks/identity; the generated mocks below are for tests that need
// call-order and argument expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for ProfileStore interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/civisim/civisim-api/internal/ports ProfileStore

// Generate mock for Authenticator interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=authenticator_mock.go github.com/civisim/civisim-api/internal/ports Authenticator
