package coordinator

import (
	"github.com/aerc-go/aerc/imap"
	"github.com/aerc-go/aerc/queue"
	"github.com/aerc-go/aerc/worker"
)

// connState is how far an account's worker has gotten in establishing
// its IMAP session.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateAwaitingCert
	stateConnected
)

// Account is the coordinator's view of one configured mail account: a
// handle to its worker's queues plus everything folded in from the
// Updates that worker has pushed.
type Account struct {
	Name string

	Inbound  *queue.SPSC
	Outbound *queue.SPSC

	state connState

	PendingCert *worker.Update // set while awaiting CERT_OKAY/CERT_REJECT

	Mailboxes []*imap.Mailbox
	Selected  string

	LastError  error
	StatusText string
}

// NewAccount wires up an Account's queues; the caller is responsible
// for starting the matching worker.Worker against the same pair.
func NewAccount(name string, inbound, outbound *queue.SPSC) *Account {
	return &Account{Name: name, Inbound: inbound, Outbound: outbound}
}

// Connect pushes an ActionConnect for uri, keyed by its own fresh
// correlation ID.
func (a *Account) Connect(uri string) {
	action := worker.NewAction(worker.ActionConnect)
	action.URI = uri
	a.state = stateConnecting
	a.Inbound.Push(action)
}

// ApproveCert answers a pending CONNECT_CERT_CHECK.
func (a *Account) ApproveCert() {
	a.PendingCert = nil
	a.Inbound.Push(worker.NewAction(worker.ActionCertOkay))
}

// RejectCert answers a pending CONNECT_CERT_CHECK by refusing it.
func (a *Account) RejectCert() {
	a.PendingCert = nil
	a.state = stateDisconnected
	a.Inbound.Push(worker.NewAction(worker.ActionCertReject))
}

// SelectMailbox pushes an ActionSelectMailbox for name.
func (a *Account) SelectMailbox(name string) {
	action := worker.NewAction(worker.ActionSelectMailbox)
	action.Mailbox = name
	a.Inbound.Push(action)
}

// FetchMessages pushes an ActionFetchMessages for seqSet/attrs against
// the currently selected mailbox.
func (a *Account) FetchMessages(seqSet string, attrs []string) {
	action := worker.NewAction(worker.ActionFetchMessages)
	action.SeqSet = seqSet
	action.Attrs = attrs
	a.Inbound.Push(action)
}

// ListMailboxes pushes an ActionListMailboxes.
func (a *Account) ListMailboxes() {
	a.Inbound.Push(worker.NewAction(worker.ActionListMailboxes))
}

// DeleteMailbox pushes an ActionDeleteMailbox for name.
func (a *Account) DeleteMailbox(name string) {
	action := worker.NewAction(worker.ActionDeleteMailbox)
	action.Mailbox = name
	a.Inbound.Push(action)
}

// Shutdown pushes ActionShutdown, telling the worker to tear down its
// connection and return from Run.
func (a *Account) Shutdown() {
	a.Inbound.Push(worker.NewAction(worker.ActionShutdown))
}

// apply folds one Update from this account's worker into the model,
// reporting whether anything changed that the renderer would need to
// redraw.
func (a *Account) apply(u worker.Update) (dirty bool) {

	switch u.Kind {

	case worker.UpdateAck:
		return false

	case worker.UpdateConnectCertCheck:
		a.state = stateAwaitingCert
		cert := u
		a.PendingCert = &cert
		return true

	case worker.UpdateConnectDone:
		a.state = stateConnected
		a.LastError = nil
		return true

	case worker.UpdateConnectError:
		a.state = stateDisconnected
		a.LastError = u.Err
		return true

	case worker.UpdateMailboxUpdated:
		a.upsertMailbox(u.Mailbox)
		if u.Mailbox != nil && u.Mailbox.Selected {
			a.Selected = u.Mailbox.Name
		}
		return true

	case worker.UpdateMailboxDeleted:
		a.removeMailbox(u.MailboxName)
		return true

	case worker.UpdateMessageUpdated:
		// Mailboxes hold snapshots, not the worker's live Mailbox, so a
		// fetched message is stored into its snapshot by sequence index.
		for _, m := range a.Mailboxes {
			if m.Name == u.MailboxName && u.Message != nil && u.Message.Index >= 1 {
				for len(m.Messages) < u.Message.Index {
					m.Messages = append(m.Messages, &imap.Message{Index: len(m.Messages) + 1})
				}
				m.Messages[u.Message.Index-1] = u.Message
			}
		}
		return true

	case worker.UpdateMessageDeleted:
		// The worker follows every EXPUNGE with a MailboxUpdated snapshot
		// that no longer holds the message; only the redraw is flagged.
		return true

	case worker.UpdateStatus:
		a.StatusText = u.StatusText
		return true
	}

	return false
}

func (a *Account) upsertMailbox(mbox *imap.Mailbox) {

	if mbox == nil {
		return
	}

	for i, m := range a.Mailboxes {
		if m.Name == mbox.Name {
			a.Mailboxes[i] = mbox
			return
		}
	}

	a.Mailboxes = append(a.Mailboxes, mbox)
}

func (a *Account) removeMailbox(name string) {

	for i, m := range a.Mailboxes {
		if m.Name == name {
			a.Mailboxes = append(a.Mailboxes[:i], a.Mailboxes[i+1:]...)
			return
		}
	}
}
