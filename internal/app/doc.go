// Package app decides which workspace channels to archive and applies the
// decision.
//
// Rules, first match wins:
//
// *. An already archived channel is left alone.
// *. A channel whose members all belong to the configured email domains is
//    an orphan channel and is archived.
// *. A channel with no message inside the configured window is archived.
// *. Everything else is kept.
//
// Notes:
// *. Channels named in the exclude list are never touched.
// *. Members without a resolvable email domain (deleted accounts, bots,
//    missing or malformed emails) do not count toward the orphan rule.
// *. A channel with zero resolvable members is never archived as orphan.
// *. Unknown activity never archives a channel; the channel is kept and the
//    reason says so.
// *. Dry run is the default. Live mode performs the archive calls, one
//    channel's failure never stops the run.
package app
