//go:build unix

package sensor

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// listenTCP binds an IPv4 socket on every interface with an explicit listen
// backlog, which net.Listen does not expose.
func listenTCP(addr string, backlog int) (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	var ip [4]byte
	if host != "" {
		parsed := net.ParseIP(host).To4()
		if parsed == nil {
			return nil, fmt.Errorf("host %q is not an IPv4 address", host)
		}
		copy(ip[:], parsed)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: ip}); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups the descriptor, so the file is closed either way.
	f := os.NewFile(uintptr(fd), "jobsensor-listener")
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, err
	}
	return ln, nil
}
