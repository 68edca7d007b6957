// Package mail reads the inbox of a local IMAP bridge and sends mail through
// its SMTP side.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// Errors reported to clients in place of transport detail.
var (
	ErrNotConfigured = errors.New("incomplete mail configuration")
	ErrBridgeDown    = errors.New("mail bridge not running or wrong port")
	ErrNotFound      = errors.New("email not found")
)

// Header is the summary of one message.
type Header struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Date    string `json:"date"`
}

// Message is a full message with its readable bodies.
type Message struct {
	Header
	Body     string  `json:"body"`
	HTMLBody *string `json:"html_body"`
}

// Mailbox is the read and send surface used by the HTTP layer.
type Mailbox interface {
	Unread(ctx context.Context, limit int) (int, []Header, error)
	Message(ctx context.Context, id string) (*Message, error)
	History(ctx context.Context, page, perPage int) (int, []Header, error)
	Send(ctx context.Context, to, subject, body string) error
}

// Opts addresses the bridge.
type Opts struct {
	IMAPAddr    string
	SMTPAddr    string
	User        string
	Password    string
	InsecureTLS bool // accept the bridge's self-signed certificate
}

// Client implements Mailbox against an IMAP/SMTP bridge. It opens a fresh
// connection per call.
type Client struct {
	opts Opts
}

// New creates a Client.
func New(opts Opts) *Client {
	return &Client{opts: opts}
}

// Addr joins host and port.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Client) configured() bool {
	return c.opts.User != "" && c.opts.Password != ""
}

// dialError replaces a refused connection with ErrBridgeDown.
func dialError(proto string, err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrBridgeDown
	}
	return fmt.Errorf("%s: %w", proto, err)
}
