package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const inbox = "INBOX"

// session dials, upgrades to TLS when the bridge offers it, and logs in.
func (c *Client) session(ctx context.Context) (*client.Client, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ic, err := client.Dial(c.opts.IMAPAddr)
	if err != nil {
		return nil, dialError("imap", err)
	}
	if ok, _ := ic.SupportStartTLS(); ok {
		if err := ic.StartTLS(&tls.Config{InsecureSkipVerify: c.opts.InsecureTLS}); err != nil {
			ic.Logout()
			return nil, fmt.Errorf("imap: starttls: %w", err)
		}
	}
	if err := ic.Login(c.opts.User, c.opts.Password); err != nil {
		ic.Logout()
		return nil, fmt.Errorf("imap: login: %w", err)
	}
	return ic, nil
}

var headerSection = &imap.BodySectionName{
	BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
	Peek:         true,
}

// fetchHeaders returns the headers of seqset, in ascending sequence order.
func fetchHeaders(ic *client.Client, seqset *imap.SeqSet) ([]Header, error) {
	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- ic.Fetch(seqset, []imap.FetchItem{headerSection.FetchItem()}, messages)
	}()

	type seqHeader struct {
		seq uint32
		h   Header
	}
	var got []seqHeader
	for m := range messages {
		body := m.GetBody(headerSection)
		if body == nil {
			continue
		}
		h, err := ParseHeader(strconv.FormatUint(uint64(m.SeqNum), 10), body)
		if err != nil {
			continue
		}
		got = append(got, seqHeader{m.SeqNum, h})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap: fetch headers: %w", err)
	}

	sort.Slice(got, func(i, j int) bool { return got[i].seq < got[j].seq })
	headers := make([]Header, len(got))
	for i, g := range got {
		headers[i] = g.h
	}
	return headers, nil
}

// Unread returns the number of unseen inbox messages and the headers of the
// last limit of them, newest first.
func (c *Client) Unread(ctx context.Context, limit int) (int, []Header, error) {
	ic, err := c.session(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer ic.Logout()

	if _, err := ic.Select(inbox, true); err != nil {
		return 0, nil, fmt.Errorf("imap: select: %w", err)
	}
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := ic.Search(criteria)
	if err != nil {
		return 0, nil, fmt.Errorf("imap: search unseen: %w", err)
	}
	if len(ids) == 0 {
		return 0, []Header{}, nil
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	recent := ids
	if len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(recent...)
	headers, err := fetchHeaders(ic, seqset)
	if err != nil {
		return 0, nil, err
	}
	for i, j := 0, len(headers)-1; i < j; i, j = i+1, j-1 {
		headers[i], headers[j] = headers[j], headers[i]
	}
	return len(ids), headers, nil
}

// History returns the inbox size and one page of headers, oldest first.
// Pages start at 1.
func (c *Client) History(ctx context.Context, page, perPage int) (int, []Header, error) {
	if page < 1 || perPage < 1 {
		return 0, nil, fmt.Errorf("imap: page and per_page must be positive")
	}
	ic, err := c.session(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer ic.Logout()

	status, err := ic.Select(inbox, true)
	if err != nil {
		return 0, nil, fmt.Errorf("imap: select: %w", err)
	}
	total := int(status.Messages)
	first := (page-1)*perPage + 1
	if first > total {
		return total, []Header{}, nil
	}
	last := min(first+perPage-1, total)

	seqset := new(imap.SeqSet)
	seqset.AddRange(uint32(first), uint32(last))
	headers, err := fetchHeaders(ic, seqset)
	if err != nil {
		return 0, nil, err
	}
	return total, headers, nil
}

// Message fetches one message by sequence number and marks it seen.
func (c *Client) Message(ctx context.Context, id string) (*Message, error) {
	seq, err := strconv.ParseUint(id, 10, 32)
	if err != nil || seq == 0 {
		return nil, ErrNotFound
	}
	ic, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	defer ic.Logout()

	status, err := ic.Select(inbox, false)
	if err != nil {
		return nil, fmt.Errorf("imap: select: %w", err)
	}
	if uint32(seq) > status.Messages {
		return nil, ErrNotFound
	}

	section := &imap.BodySectionName{}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(seq))
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- ic.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var msg *Message
	var parseErr error
	for m := range messages {
		body := m.GetBody(section)
		if body == nil || msg != nil {
			continue
		}
		msg, parseErr = ParseMessage(id, body)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap: fetch %s: %w", id, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	return msg, nil
}
