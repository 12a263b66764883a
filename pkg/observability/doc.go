/*
Package observability provides tools for monitoring calls made through the client.

It includes Prometheus metrics driven by lifecycle hooks, structured logging hooks
for auditing calls, and helpers to combine several hook sets into one.
*/
package observability
