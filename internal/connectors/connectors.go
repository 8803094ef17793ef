// Package connectors pulls roster emails out of a mailbox, keeps the raw
// messages on disk and hands them to the roster importer.
package connectors

// Message is one raw RFC 822 message fetched from a mailbox.
type Message struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type MailConnector interface {
	FetchUnseen(mailbox string, max int) ([]Message, error)
}
