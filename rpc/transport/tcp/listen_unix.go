//go:build linux || darwin

package tcp

import (
	"fmt"
	"golang.org/x/sys/unix"
	"net"
	"os"
)

// listen creates the listening socket by hand so that SO_REUSEADDR and the
// accept backlog can be set before listen(2). The finished socket is handed
// to the runtime poller with net.FileListener.
func listen(endpoint string, backlog int, reuseAddr bool) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", endpoint)
	if err != nil {
		return nil, err
	}

	domain, sa, err := sockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	// the fd is owned by this function until net.FileListener dups it
	closeFd := func(err error) (net.Listener, error) {
		_ = unix.Close(fd)
		return nil, err
	}

	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		return closeFd(os.NewSyscallError("fcntl", err))
	}

	if reuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return closeFd(os.NewSyscallError("setsockopt", err))
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return closeFd(os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return closeFd(os.NewSyscallError("listen", err))
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("tcp:%s", endpoint))
	defer f.Close()

	return net.FileListener(f)
}

// sockaddr converts a resolved address into the matching socket domain and
// address. An unspecified host binds to all IPv4 interfaces.
func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if addr.IP != nil {
			copy(sa.Addr[:], addr.IP.To4())
		}
		return unix.AF_INET, sa, nil
	}

	ip6 := addr.IP.To16()
	if ip6 == nil {
		return 0, nil, &net.AddrError{Err: "unsupported address", Addr: addr.String()}
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip6)
	if addr.Zone != "" {
		ifi, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return 0, nil, &net.AddrError{Err: "unknown zone", Addr: addr.String()}
		}
		sa.ZoneId = uint32(ifi.Index)
	}
	return unix.AF_INET6, sa, nil
}
