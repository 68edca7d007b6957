package mail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

const (
	noSubject     = "(No subject)"
	unknownSender = "Unknown"
)

func headerFrom(id string, h gomail.Header) Header {
	subject, err := h.Subject()
	if err != nil || subject == "" {
		subject = h.Get("Subject")
	}
	if subject == "" {
		subject = noSubject
	}
	sender, err := h.Text("From")
	if err != nil || sender == "" {
		sender = h.Get("From")
	}
	if sender == "" {
		sender = unknownSender
	}
	return Header{ID: id, Subject: subject, Sender: sender, Date: h.Get("Date")}
}

// ParseHeader reads a header block, as returned by a BODY[HEADER] fetch.
func ParseHeader(id string, r io.Reader) (Header, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(r))
	if err != nil {
		return Header{}, fmt.Errorf("mail: read header %s: %w", id, err)
	}
	return headerFrom(id, gomail.Header{Header: message.Header{Header: h}}), nil
}

// ParseMessage reads a full RFC 5322 message. Attachments are skipped. The
// last text/plain part becomes Body and the first text/html part HTMLBody;
// a message that is only HTML has an empty Body.
func ParseMessage(id string, r io.Reader) (*Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("mail: read message %s: %w", id, err)
	}
	defer mr.Close()

	msg := &Message{Header: headerFrom(id, mr.Header)}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("mail: read part of %s: %w", id, err)
		}
		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		if disp, _, _ := h.ContentDisposition(); strings.EqualFold(disp, "attachment") {
			continue
		}
		ct, _, _ := h.ContentType()
		switch ct {
		case "text/plain":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("mail: read text part of %s: %w", id, err)
			}
			msg.Body = string(b)
		case "text/html":
			if msg.HTMLBody != nil {
				continue
			}
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("mail: read html part of %s: %w", id, err)
			}
			html := string(b)
			msg.HTMLBody = &html
		}
	}
	return msg, nil
}
