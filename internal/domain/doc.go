// Package domain defines the core business types for the newsletter service.
//
// Types in this package are validated value objects with no database
// dependencies and no HTTP concerns. They are the shared language between
// handlers, the subscription service, and the stores: raw user input is
// parsed into these types at the edge, and everything downstream trusts them.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request in struct fields
//   - Parse functions are pure; construction failure is the only error path
package domain
