// Package kiwiq holds the error taxonomy shared by the SQL builder
// (dialect/sql) and the entity mapping layer (mapping).
//
// Errors fall in four families, each matched with errors.Is:
//
//   - ErrUsage: a builder method called twice where only one call is allowed,
//     or out of order (WHERE, LIMIT/OFFSET, INSERT/UPDATE value sources).
//   - ErrConfig: an entity type that cannot be mapped. These are built once,
//     at mapper-compile time, and cached for the type.
//   - ErrNotFound: a key-based single-row query yielded no row.
//   - ErrStructure: a command that cannot be rendered (unbalanced brackets,
//     missing FROM table, no values to write).
//
// None of them are retried.
package kiwiq
