/*
Package observability provides tools for monitoring the Tessera engine.

It includes Prometheus metrics fed by lifecycle hooks and a report feed that
keeps recent dispatch reports in a ring buffer and streams new ones to subscribers.
*/
package observability
