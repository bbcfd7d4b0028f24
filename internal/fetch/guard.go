package fetch

import (
	"fmt"
	"net"
	"syscall"
)

// ipPermitted reports whether an outbound connection to ip is allowed.
// Loopback, link-local (including the cloud metadata endpoint), RFC1918
// private, unique-local and unspecified addresses are all refused.
func ipPermitted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsUnspecified() {
		return false
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	// IsPrivate covers 10/8, 172.16/12, 192.168/16 and fc00::/7.
	if ip.IsPrivate() {
		return false
	}
	return ip.IsGlobalUnicast()
}

// dialControl runs after DNS resolution, immediately before the socket
// connects. Checking the concrete address here closes the rebinding window
// between the pre-flight hostname check and the actual dial.
func (r *Resolver) dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return &DownloadError{Kind: KindUnsafeTarget, URL: address, Err: fmt.Errorf("dial target %q is not an IP", host)}
	}
	if r.hostAllowed(host) {
		return nil
	}
	if !ipPermitted(ip) {
		return &DownloadError{Kind: KindUnsafeTarget, URL: address, Err: fmt.Errorf("dial target %s is not a public address", ip)}
	}
	return nil
}
