package worker

import (
	"crypto/x509"

	"github.com/aerc-go/aerc/imap"
	uuid "github.com/satori/go.uuid"
)

// ActionKind identifies the operation a coordinator-to-worker Action
// carries out, mirroring the one-method-per-verb shape of the
// teacher's Service interface collapsed into a single tagged message.
type ActionKind int

const (
	ActionConnect ActionKind = iota
	ActionCertOkay
	ActionCertReject
	ActionListMailboxes
	ActionSelectMailbox
	ActionFetchMessages
	ActionDeleteMailbox
	ActionShutdown
)

func (k ActionKind) String() string {
	switch k {
	case ActionConnect:
		return "CONNECT"
	case ActionCertOkay:
		return "CERT_OKAY"
	case ActionCertReject:
		return "CERT_REJECT"
	case ActionListMailboxes:
		return "LIST_MAILBOXES"
	case ActionSelectMailbox:
		return "SELECT_MAILBOX"
	case ActionFetchMessages:
		return "FETCH_MESSAGES"
	case ActionDeleteMailbox:
		return "DELETE_MAILBOX"
	case ActionShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Action is one request the coordinator pushes onto a worker's
// inbound queue. ID is a fresh UUID per action, echoed back on the
// worker's ACK so the coordinator can match completions to requests.
type Action struct {
	ID   uuid.UUID
	Kind ActionKind

	// URI carries the connection string for ActionConnect.
	URI string

	// Mailbox names the target for ActionSelectMailbox and
	// ActionDeleteMailbox.
	Mailbox string

	// SeqSet and Attrs carry an ActionFetchMessages request.
	SeqSet string
	Attrs  []string
}

// NewAction stamps out an Action with a fresh correlation ID.
func NewAction(kind ActionKind) Action {
	return Action{ID: uuid.NewV4(), Kind: kind}
}

// UpdateKind identifies what a worker-to-coordinator Update reports.
type UpdateKind int

const (
	UpdateAck UpdateKind = iota
	UpdateConnectCertCheck
	UpdateConnectDone
	UpdateConnectError
	UpdateMailboxUpdated
	UpdateMailboxDeleted
	UpdateMessageUpdated
	UpdateMessageDeleted
	UpdateStatus
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateAck:
		return "ACK"
	case UpdateConnectCertCheck:
		return "CONNECT_CERT_CHECK"
	case UpdateConnectDone:
		return "CONNECT_DONE"
	case UpdateConnectError:
		return "CONNECT_ERROR"
	case UpdateMailboxUpdated:
		return "MAILBOX_UPDATED"
	case UpdateMailboxDeleted:
		return "MAILBOX_DELETED"
	case UpdateMessageUpdated:
		return "MESSAGE_UPDATED"
	case UpdateMessageDeleted:
		return "MESSAGE_DELETED"
	case UpdateStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// Update is one event a worker pushes onto its outbound queue for the
// coordinator to fold into the account model.
type Update struct {
	Kind UpdateKind

	// InReplyTo is the Action.ID this update answers, zero-value for
	// updates not triggered by a specific action (unsolicited mailbox/
	// message changes, STATUS).
	InReplyTo uuid.UUID

	Account string
	Err     error

	Cert *x509.Certificate // set for UpdateConnectCertCheck

	MailboxName string
	Mailbox     *imap.Mailbox // set for UpdateMailboxUpdated
	Message     *imap.Message // set for UpdateMessageUpdated
	UID         int64         // set for UpdateMessageDeleted

	StatusText string
}
