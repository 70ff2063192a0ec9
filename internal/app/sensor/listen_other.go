//go:build !unix

package sensor

import "net"

// listenTCP falls back to net.Listen, which uses the platform's default
// backlog.
func listenTCP(addr string, _ int) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
