// Package worker runs one IMAP account's connection on its own
// goroutine: a select loop over the socket's readiness channel, the
// inbound action queue, and the idle-refresh timer, translating
// coordinator actions into IMAP commands and engine events into
// update messages.
package worker
