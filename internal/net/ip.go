package net

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// LinkScheme prefixes share links for remote player displays.
const LinkScheme = "mapreveal://"

// OutgoingIP finds the preferred local IP address to share with viewers.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// no route to the internet, fall back to the interfaces
		return firstIPv4().String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// firstIPv4 returns the first address of an interface that is up and not
// loopback.
func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	slog.Warn("no suitable local IP found, share link uses loopback", "component", "net")
	return net.IPv4(127, 0, 0, 1)
}

// ShareLink returns the link a viewer opens to reach this host.
func ShareLink(host string, port int) string {
	return LinkScheme + net.JoinHostPort(host, fmt.Sprint(port))
}

// ParseLink extracts host:port from a share link. A bare host:port is
// accepted too.
func ParseLink(link string) (string, error) {
	addr := strings.TrimSuffix(strings.TrimPrefix(link, LinkScheme), "/")
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parsing share link %q: %w", link, err)
	}
	if host == "" || port == "" {
		return "", fmt.Errorf("parsing share link %q: missing host or port", link)
	}
	return net.JoinHostPort(host, port), nil
}
