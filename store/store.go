// Package store provides persistence implementations for use cases and their
// per-user associations. The UseCaseStore port is defined in the parent
// usecasekit package (../store_interface.go) to avoid import cycles between
// the repository and store packages.
//
// This package contains concrete implementations:
//   - DynamoDBStore: single-table AWS DynamoDB backend
//   - MemoryStore: In-memory backend for testing
//
// Schema design follows the single-table layout described in schema.go.
package store
