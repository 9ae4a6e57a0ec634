package worker

import (
	"fmt"

	"github.com/aerc-go/aerc/imap"
	uuid "github.com/satori/go.uuid"
)

// dispatchAction routes one popped Action to its handler, the
// generalization of the teacher's Service interface (one method per
// IMAP verb) onto this client's smaller action set.
func (w *Worker) dispatchAction(action Action) {

	switch action.Kind {
	case ActionConnect:
		w.handleConnect(action)
	case ActionCertOkay:
		w.handleCertOkay(action)
	case ActionCertReject:
		w.handleCertReject(action)
	case ActionListMailboxes:
		w.handleListMailboxes(action)
	case ActionSelectMailbox:
		w.handleSelectMailbox(action)
	case ActionFetchMessages:
		w.handleFetchMessages(action)
	case ActionDeleteMailbox:
		w.handleDeleteMailbox(action)
	}
}

// handleConnect dials the account's URI. A plaintext connection goes
// straight into the IMAP handshake; a TLS connection's certificate is
// handed to the coordinator for approval first (handle_imap_ready's
// cert-check step in the original engine), staged in pendingSocket
// until CERT_OKAY/CERT_REJECT arrives.
func (w *Worker) handleConnect(action Action) {

	uri, err := imap.ParseURI(action.URI)
	if err != nil {
		w.failConnect(action.ID, err)
		return
	}

	w.pendingURI = uri

	if uri.UseSSL {
		socket, err := imap.DialTLS(uri.Addr(), uri.Host, false)
		if err != nil {
			w.failConnect(action.ID, err)
			return
		}

		w.pendingSocket = socket
		w.pendingActionID = action.ID

		w.push(Update{
			Kind:      UpdateConnectCertCheck,
			InReplyTo: action.ID,
			Account:   w.Account,
			Cert:      socket.Certificate(),
		})
		return
	}

	socket, err := imap.DialPlain(uri.Addr())
	if err != nil {
		w.failConnect(action.ID, err)
		return
	}

	w.startHandshake(socket, uri, action.ID)
}

func (w *Worker) handleCertOkay(_ Action) {

	if w.pendingSocket == nil {
		return
	}

	socket, uri, actionID := w.pendingSocket, w.pendingURI, w.pendingActionID
	w.pendingSocket = nil

	w.startHandshake(socket, uri, actionID)
}

func (w *Worker) handleCertReject(_ Action) {

	if w.pendingSocket == nil {
		return
	}

	w.pendingSocket.Close()
	w.failConnect(w.pendingActionID, imap.ErrCertificateRejected)
	w.pendingSocket = nil
}

// startHandshake wraps socket in a Connection and kicks off the
// greeting/capability/auth sequence; the result arrives asynchronously
// through the Ready event.
func (w *Worker) startHandshake(socket *imap.Socket, uri *imap.URI, actionID uuid.UUID) {

	w.conn = imap.Connect(socket, uri, imap.Events{
		MailboxUpdated: w.onMailboxUpdated,
		MailboxDeleted: w.onMailboxDeleted,
		MessageUpdated: w.onMessageUpdated,
		MessageDeleted: w.onMessageDeleted,
		Ready:          func(err error) { w.onReady(actionID, err) },
		Log:            w.onLog,
	})
}

func (w *Worker) onReady(actionID uuid.UUID, err error) {

	if err != nil {
		w.failConnect(actionID, err)
		w.conn = nil
		return
	}

	w.push(Update{Kind: UpdateConnectDone, InReplyTo: actionID, Account: w.Account})
}

func (w *Worker) failConnect(actionID uuid.UUID, err error) {
	if w.metrics != nil {
		w.metrics.ConnectErrors.With("account", w.Account, "kind", connectErrorKind(err)).Add(1)
	}
	w.push(Update{Kind: UpdateConnectError, InReplyTo: actionID, Account: w.Account, Err: err})
}

func connectErrorKind(err error) string {

	switch {
	case err == imap.ErrCertificateRejected:
		return "cert_rejected"
	case err == imap.ErrNoCompatibleAuth:
		return "auth"
	}

	switch err.(type) {
	case *imap.ConnectError:
		return "connect"
	case *imap.AuthError:
		return "auth"
	case *imap.ProtocolError:
		return "protocol"
	default:
		return "other"
	}
}

func (w *Worker) handleListMailboxes(action Action) {

	if w.conn == nil {
		return
	}

	w.recordCommand("LIST")

	w.conn.List("", "*", func(_ *imap.Connection, _ interface{}, status imap.Status, args string) {
		w.recordResponse(status)
		if status != imap.StatusOK {
			w.statusUpdate(fmt.Sprintf("LIST failed: %s %s", status, args))
		}
	}, nil)
}

func (w *Worker) handleSelectMailbox(action Action) {

	if w.conn == nil {
		return
	}

	w.recordCommand("SELECT")

	w.conn.Select(action.Mailbox, func(_ *imap.Connection, _ interface{}, status imap.Status, args string) {
		w.recordResponse(status)
		if status != imap.StatusOK {
			w.statusUpdate(fmt.Sprintf("SELECT %s failed: %s %s", action.Mailbox, status, args))
			return
		}
		if w.metrics != nil {
			w.metrics.MailboxesSelected.With("account", w.Account).Add(1)
		}
	}, nil)
}

func (w *Worker) handleFetchMessages(action Action) {

	if w.conn == nil {
		return
	}

	w.recordCommand("FETCH")

	w.conn.Fetch(action.SeqSet, action.Attrs, func(_ *imap.Connection, _ interface{}, status imap.Status, args string) {
		w.recordResponse(status)
		if status != imap.StatusOK {
			w.statusUpdate(fmt.Sprintf("FETCH %s failed: %s %s", action.SeqSet, status, args))
		}
	}, nil)
}

func (w *Worker) handleDeleteMailbox(action Action) {

	if w.conn == nil {
		return
	}

	w.recordCommand("DELETE")

	w.conn.DeleteMailbox(action.Mailbox, func(_ *imap.Connection, _ interface{}, status imap.Status, args string) {
		w.recordResponse(status)
		if status != imap.StatusOK {
			w.statusUpdate(fmt.Sprintf("DELETE %s failed: %s %s", action.Mailbox, status, args))
		}
	}, nil)
}

func (w *Worker) recordCommand(kind string) {
	if w.metrics != nil {
		w.metrics.CommandsSent.With("account", w.Account, "kind", kind).Add(1)
	}
}

func (w *Worker) recordResponse(status imap.Status) {
	if w.metrics != nil {
		w.metrics.ResponsesReceived.With("account", w.Account, "status", status.String()).Add(1)
	}
}

// onMailboxUpdated snapshots mbox before handing it to the coordinator:
// the Connection goroutine keeps mutating the same *imap.Mailbox on
// every subsequent untagged response, so the queued Update must carry
// its own copy, never the live pointer (spec §5/§6).
func (w *Worker) onMailboxUpdated(mbox *imap.Mailbox) {
	w.push(Update{
		Kind:        UpdateMailboxUpdated,
		Account:     w.Account,
		MailboxName: mbox.Name,
		Mailbox:     mbox.Clone(),
	})
}

func (w *Worker) onMailboxDeleted(name string) {
	w.push(Update{
		Kind:        UpdateMailboxDeleted,
		Account:     w.Account,
		MailboxName: name,
	})
}

// onMessageUpdated snapshots msg before queuing it, for the same reason
// onMailboxUpdated does: the worker goroutine keeps mutating msg via
// later FETCH merges.
func (w *Worker) onMessageUpdated(mboxName string, msg *imap.Message) {
	if w.metrics != nil {
		w.metrics.MessagesFetched.With("account", w.Account).Add(1)
	}
	w.push(Update{
		Kind:        UpdateMessageUpdated,
		Account:     w.Account,
		MailboxName: mboxName,
		Message:     msg.Clone(),
	})
}

func (w *Worker) onMessageDeleted(mboxName string, uid int64) {
	w.push(Update{
		Kind:        UpdateMessageDeleted,
		Account:     w.Account,
		MailboxName: mboxName,
		UID:         uid,
	})
}

func (w *Worker) onLog(format string, args ...interface{}) {
	w.statusUpdate(fmt.Sprintf(format, args...))
}

func (w *Worker) statusUpdate(text string) {
	w.push(Update{Kind: UpdateStatus, Account: w.Account, StatusText: text})
}
