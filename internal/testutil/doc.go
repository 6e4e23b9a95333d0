// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing runtime messages and model responses. These
// helpers are not intended for production usage.
package testutil
