// Package netutil resolves the host address advertised in capability blocks
// and discovery announcements.
package netutil

import (
	"fmt"
	"net"
)

// LocalIP returns the host's primary outbound IPv4 address. It opens a
// connectionless UDP socket towards a public address to learn which local
// interface the kernel would route through; no packet is sent. Falls back
// to the loopback address when the host has no route.
func LocalIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// ServiceAddr builds the HTTP address of an ONVIF service endpoint on this
// host.
func ServiceAddr(ip string, port int, path string) string {
	return fmt.Sprintf("http://%s:%d%s", ip, port, path)
}
