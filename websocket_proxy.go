package leaserenew

import (
	"fmt"
	"github.com/gorilla/websocket"
	"net"
)

// messageConn is the part of a websocket connection the relay needs; both the
// console's fiber connection and the gorilla DevTools connection satisfy it.
type messageConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// devtoolsURL is the remote debugging websocket of a page target
func devtoolsURL(debugAddr, targetID string) (string, error) {
	host, port, err := splitDebugAddr(debugAddr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ws://%s/devtools/page/%s", net.JoinHostPort(host, port), targetID), nil
}

// dialDevtools connects to the remote debugging websocket of a page target
func dialDevtools(debugAddr, targetID string) (*websocket.Conn, error) {
	url, err := devtoolsURL(debugAddr, targetID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// pump copies messages from src to dst until either side fails
func pump(dst, src messageConn) {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			return
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			return
		}
	}
}

// relay proxies all messages between the requester and the DevTools websocket
// in both directions; when either direction ends both connections are closed.
func relay(requester, upstream messageConn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		pump(requester, upstream)
		_ = requester.Close()
	}()
	pump(upstream, requester)
	_ = upstream.Close()
	<-done
}
