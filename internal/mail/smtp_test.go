package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// outbox records what the SMTP bridge received.
type outbox struct {
	mu       sync.Mutex
	authUser string
	from     string
	rcpts    []string
	data     []byte
}

func (o *outbox) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &smtpSession{box: o}, nil
}

type smtpSession struct {
	box    *outbox
	authed bool
}

func (s *smtpSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != "username" || password != "password" {
			return errors.New("invalid credentials")
		}
		s.authed = true
		s.box.mu.Lock()
		s.box.authUser = username
		s.box.mu.Unlock()
		return nil
	}), nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return smtp.ErrAuthRequired
	}
	s.box.mu.Lock()
	defer s.box.mu.Unlock()
	s.box.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()
	s.box.rcpts = append(s.box.rcpts, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.box.mu.Lock()
	defer s.box.mu.Unlock()
	s.box.data = b
	return nil
}

func (s *smtpSession) Reset()        {}
func (s *smtpSession) Logout() error { return nil }

// testCertificate borrows httptest's self-signed certificate.
func testCertificate(t *testing.T) []tls.Certificate {
	t.Helper()
	ts := httptest.NewTLSServer(http.NotFoundHandler())
	defer ts.Close()
	return ts.TLS.Certificates
}

// startSMTPBridge serves an SMTP backend accepting user "username" with
// password "password". With withTLS the server offers STARTTLS; otherwise
// it allows PLAIN auth in the clear.
func startSMTPBridge(t *testing.T, withTLS bool) (string, *outbox) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	box := &outbox{}
	s := smtp.NewServer(box)
	s.Domain = "localhost"
	s.ReadTimeout = 5 * time.Second
	s.WriteTimeout = 5 * time.Second
	if withTLS {
		s.TLSConfig = &tls.Config{Certificates: testCertificate(t)}
	} else {
		s.AllowInsecureAuth = true
	}
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })
	return l.Addr().String(), box
}

func TestSend(t *testing.T) {
	tests := []struct {
		name    string
		withTLS bool
	}{
		{"plain", false},
		{"starttls", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, box := startSMTPBridge(t, tt.withTLS)
			c := New(Opts{SMTPAddr: addr, User: "username", Password: "password", InsecureTLS: true})

			err := c.Send(context.Background(), "Alice <alice@example.org>, bob@example.org", "Réunion", "See you at 10.")
			if err != nil {
				t.Fatalf("Send: %v", err)
			}

			box.mu.Lock()
			defer box.mu.Unlock()
			if box.authUser != "username" {
				t.Errorf("authenticated as %q, want username", box.authUser)
			}
			if box.from != "username" {
				t.Errorf("MAIL FROM = %q, want username", box.from)
			}
			if strings.Join(box.rcpts, ",") != "alice@example.org,bob@example.org" {
				t.Errorf("RCPT TO = %v", box.rcpts)
			}

			mr, err := gomail.CreateReader(bytes.NewReader(box.data))
			if err != nil {
				t.Fatalf("read sent message: %v", err)
			}
			subject, _ := mr.Header.Subject()
			if subject != "Réunion" {
				t.Errorf("Subject = %q", subject)
			}
			to, err := mr.Header.AddressList("To")
			if err != nil || len(to) != 2 || to[0].Address != "alice@example.org" || to[0].Name != "Alice" {
				t.Errorf("To = %v (err %v)", to, err)
			}
			if id := mr.Header.Get("Message-Id"); id == "" {
				t.Error("missing Message-Id")
			}
			p, err := mr.NextPart()
			if err != nil {
				t.Fatalf("body part: %v", err)
			}
			body, _ := io.ReadAll(p.Body)
			if strings.TrimSpace(string(body)) != "See you at 10." {
				t.Errorf("body = %q", body)
			}
		})
	}
}

func TestSend_BadPassword(t *testing.T) {
	addr, box := startSMTPBridge(t, false)
	c := New(Opts{SMTPAddr: addr, User: "username", Password: "wrong"})

	err := c.Send(context.Background(), "bob@example.org", "s", "b")
	if err == nil || !strings.Contains(err.Error(), "smtp: auth") {
		t.Fatalf("Send error = %v, want auth failure", err)
	}
	box.mu.Lock()
	defer box.mu.Unlock()
	if box.data != nil {
		t.Error("message delivered despite failed auth")
	}
}

func TestSend_BadRecipient(t *testing.T) {
	c := New(Opts{SMTPAddr: "127.0.0.1:1", User: "username", Password: "password"})
	if err := c.Send(context.Background(), "not an address", "s", "b"); err == nil {
		t.Fatal("expected recipient error")
	}
}
