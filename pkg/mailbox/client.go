package mailbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// defaultDialTimeout bounds connect, TLS handshake and login. A black-holed
// server must fail the run, not stall it.
const defaultDialTimeout = 30 * time.Second

// ConnectConfig holds the settings for one mailbox connection.
type ConnectConfig struct {
	Address  string // host:port
	Username string
	Password string
	UseTLS   bool
}

// FetchedMessage is one parsed message pulled from a mailbox.
type FetchedMessage struct {
	ProviderMessageID string
	Sender            string
	Subject           string
	Body              string
	ReceivedAt        time.Time
	// ParseError is set when the MIME body could not be parsed; the envelope
	// fields are still usable.
	ParseError error
}

// Fetcher fetches messages received since a point in time. One invocation
// opens one connection, drains the matching messages into a finite slice and
// closes the connection.
type Fetcher interface {
	FetchSince(ctx context.Context, cfg ConnectConfig, since time.Time) ([]FetchedMessage, error)
}

// IMAPClient implements Fetcher over go-imap v2.
type IMAPClient struct {
	dialTimeout time.Duration
}

// NewIMAPClient creates a new IMAP fetcher.
func NewIMAPClient() *IMAPClient {
	return &IMAPClient{dialTimeout: defaultDialTimeout}
}

func (c *IMAPClient) connect(cfg ConnectConfig) (*imapclient.Client, error) {
	timeout := c.dialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}

	var client *imapclient.Client
	var conn net.Conn
	if cfg.UseTLS {
		tlsConn, err := tls.DialWithDialer(dialer, "tcp", cfg.Address, nil)
		if err != nil {
			return nil, fmt.Errorf("connecting to IMAP %s: %w", cfg.Address, err)
		}
		conn = tlsConn
		client = imapclient.New(conn, nil)
	} else {
		rawConn, err := dialer.Dial("tcp", cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("connecting to IMAP %s: %w", cfg.Address, err)
		}
		conn = rawConn
		// The greeting and STARTTLS exchange must not outlive the dial budget
		_ = conn.SetDeadline(time.Now().Add(timeout))
		client, err = imapclient.NewStartTLS(conn, nil)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("starting TLS with %s: %w", cfg.Address, err)
		}
	}

	_ = conn.SetDeadline(time.Now().Add(timeout))
	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", cfg.Username, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return client, nil
}

// FetchSince implements Fetcher. It selects INBOX, searches for messages
// received since the given time and fetches envelope plus body for each hit.
func (c *IMAPClient) FetchSince(ctx context.Context, cfg ConnectConfig, since time.Time) ([]FetchedMessage, error) {
	client, err := c.connect(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{
		Since: since,
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []FetchedMessage
	for {
		if ctx.Err() != nil {
			return messages, ctx.Err()
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		fetched := messageFromBuffer(buf, bodySection)
		messages = append(messages, fetched)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// messageFromBuffer extracts a FetchedMessage from a FetchMessageBuffer.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) FetchedMessage {
	msg := FetchedMessage{}

	if buf.Envelope != nil {
		msg.ProviderMessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.ReceivedAt = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.Sender = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				msg.Sender = from.Addr()
			}
		}
	}

	rawBody := buf.FindBodySection(section)
	if rawBody != nil {
		body, err := parseTextBody(rawBody)
		msg.Body = body
		msg.ParseError = err
	}

	return msg
}

// parseTextBody parses a raw RFC 2822 body with go-message and returns the
// text/plain part, falling back to text/html when no plain part exists.
func parseTextBody(raw []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// If parsing fails, treat the whole thing as plain text
		return string(raw), err
	}
	defer mr.Close()

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	if textBody != "" {
		return textBody, nil
	}
	return htmlBody, nil
}
