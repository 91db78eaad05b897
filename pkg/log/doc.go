/*
Package log provides structured logging for Tessera using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

Background jobs (the FlatState inlining migration, the per-shard state sync
dumpers) obtain child loggers via WithComponent and WithShardID so that their
interleaved output stays attributable.
*/
package log
