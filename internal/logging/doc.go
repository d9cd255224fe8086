// Package logging configures slog for ftsync. With --debug, JSON logs are
// written to a rotating file under ~/.ftsync/logs/ in addition to stderr;
// otherwise only warnings and errors reach stderr.
package logging
