package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

// Compose builds a plain-text UTF-8 message from the bridge user to to.
func Compose(from, to, subject, body string) ([]byte, error) {
	fromAddr, err := gomail.ParseAddress(from)
	if err != nil {
		fromAddr = &gomail.Address{Address: from}
	}
	toAddrs, err := gomail.ParseAddressList(to)
	if err != nil {
		return nil, fmt.Errorf("mail: recipient %q: %w", to, err)
	}

	var h gomail.Header
	h.SetDate(nowFunc())
	h.SetAddressList("From", []*gomail.Address{fromAddr})
	h.SetAddressList("To", toAddrs)
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("mail: message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("mail: create writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("mail: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("mail: close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Send delivers a plain-text message through the SMTP bridge.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	raw, err := Compose(c.opts.User, to, subject, body)
	if err != nil {
		return err
	}
	rcpts, err := gomail.ParseAddressList(to)
	if err != nil {
		return fmt.Errorf("mail: recipient %q: %w", to, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sc, err := c.dialSMTP()
	if err != nil {
		return err
	}
	defer sc.Close()

	if ok, _ := sc.Extension("AUTH"); ok {
		if err := sc.Auth(sasl.NewPlainClient("", c.opts.User, c.opts.Password)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	addrs := make([]string, len(rcpts))
	for i, a := range rcpts {
		addrs[i] = a.Address
	}
	if err := sc.SendMail(c.opts.User, addrs, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return sc.Quit()
}

// dialSMTP connects to the bridge, upgrading to TLS when it offers
// STARTTLS. The plain session is only used to read the EHLO extensions.
func (c *Client) dialSMTP() (*smtp.Client, error) {
	sc, err := smtp.Dial(c.opts.SMTPAddr)
	if err != nil {
		return nil, dialError("smtp", err)
	}
	ok, _ := sc.Extension("STARTTLS")
	if !ok {
		return sc, nil
	}
	sc.Close()

	host, _, _ := net.SplitHostPort(c.opts.SMTPAddr)
	sc, err = smtp.DialStartTLS(c.opts.SMTPAddr, &tls.Config{ServerName: host, InsecureSkipVerify: c.opts.InsecureTLS})
	if err != nil {
		return nil, fmt.Errorf("smtp: starttls: %w", err)
	}
	return sc, nil
}
