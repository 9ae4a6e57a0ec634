// Package coordinator folds the Update stream pushed by every worker
// into a per-account model, tracks which accounts need redrawing, and
// turns key input into Actions pushed back onto the right worker's
// inbound queue (spec §4.5).
package coordinator
