// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing records and drafts. They are not intended
// for production usage.
package testutil
