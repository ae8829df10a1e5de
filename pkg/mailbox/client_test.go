package mailbox

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

// silentServer accepts connections and never says a word, like a black-holed
// IMAP endpoint behind a firewall.
func silentServer(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = io.Copy(io.Discard, c)
			}(conn)
		}
	}()
	return ln
}

func TestFetchSinceTimesOutOnSilentServer(t *testing.T) {
	tests := []struct {
		name   string
		useTLS bool
	}{
		{name: "implicit tls", useTLS: true},
		{name: "starttls", useTLS: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln := silentServer(t)
			client := &IMAPClient{dialTimeout: 200 * time.Millisecond}

			started := time.Now()
			_, err := client.FetchSince(context.Background(), ConnectConfig{
				Address:  ln.Addr().String(),
				Username: "user",
				Password: "password",
				UseTLS:   tt.useTLS,
			}, time.Now().Add(-24*time.Hour))

			if err == nil {
				t.Fatal("expected an error from a server that never responds")
			}
			if elapsed := time.Since(started); elapsed > 5*time.Second {
				t.Errorf("connect took %s, want it bounded by the dial timeout", elapsed)
			}
		})
	}
}
