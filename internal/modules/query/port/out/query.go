package out

import "context"

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn is one duplex stream connection. Receive blocks until a message
// arrives; it returns an error wrapping apperrors.ErrPeerClosed when the
// remote end closed the connection and any other error on transport
// failure. Close unblocks a pending Receive.
type Conn interface {
	Send(ctx context.Context, query string) error
	Receive() (string, error)
	Close() error
}
