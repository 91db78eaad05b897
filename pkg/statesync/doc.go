/*
Package statesync dumps each shard's state to external object storage once
per epoch.

One task runs per shard. Each task is a resumable state machine whose state
is persisted in the StateSyncDumpProgress column: absent (never started),
in progress (parts of an epoch are still uploading), or all dumped. On
every tick the task re-reads its progress, so a restarted node resumes
exactly where it left off; already uploaded parts are discovered by listing
the external directory rather than trusted from local state.

Parts are picked uniformly at random and drawn without replacement. That
balances retries after upload failures and keeps concurrent dumpers for the
same shard from duplicating much work: object storage deduplicates by key,
so the occasional double upload is harmless.
*/
package statesync
