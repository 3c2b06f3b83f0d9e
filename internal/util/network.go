package util

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	// IPv4RouteTable is the kernel IPv4 routing table.
	IPv4RouteTable = "/proc/net/route"
	// IPv6RouteTable is the kernel IPv6 routing table.
	IPv6RouteTable = "/proc/net/ipv6_route"
)

// RTF_GATEWAY in the hex Flags column of /proc/net/route.
const rtfGateway = 0x2

// ErrNoDefaultRoute is returned when a routing table carries no default route.
var ErrNoDefaultRoute = errors.New("default route not found")

// Uplink describes the interface %defaultroute resolves to on this host.
type Uplink struct {
	Interface   string `json:"interface"`
	IPv4        string `json:"ipv4,omitempty"`
	IPv6Default bool   `json:"ipv6Default"`
	IPv6Iface   string `json:"ipv6Interface,omitempty"`
}

// DetectUplink reads both kernel routing tables. A missing IPv4 default route is an
// error; a missing IPv6 one only clears IPv6Default.
func DetectUplink(ipv4Table, ipv6Table string) (Uplink, error) {
	iface, err := defaultRouteFromFile(ipv4Table, parseIPv4DefaultRoute)
	if err != nil {
		return Uplink{}, err
	}
	uplink := Uplink{Interface: iface}
	if ip, err := InterfaceIPv4(iface); err == nil {
		uplink.IPv4 = ip
	}
	if v6, err := defaultRouteFromFile(ipv6Table, parseIPv6DefaultRoute); err == nil {
		uplink.IPv6Default = true
		uplink.IPv6Iface = v6
	}
	return uplink, nil
}

func defaultRouteFromFile(path string, parse func(io.Reader) (string, error)) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return parse(file)
}

// parseIPv4DefaultRoute scans /proc/net/route for a gateway route to 0.0.0.0.
func parseIPv4DefaultRoute(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	// skip header
	if !scanner.Scan() {
		return "", errors.New("unexpected route table format")
	}
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 11 {
			continue
		}
		if fields[1] != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil {
			continue
		}
		if flags&rtfGateway != 0 {
			return fields[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrNoDefaultRoute
}

// parseIPv6DefaultRoute scans /proc/net/ipv6_route for ::/0 on a non-loopback device.
func parseIPv6DefaultRoute(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		if strings.Trim(fields[0], "0") == "" && fields[1] == "00" && fields[9] != "lo" {
			return fields[9], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrNoDefaultRoute
}

// InterfaceIPv4 returns the first IPv4 address bound to an interface.
func InterfaceIPv4(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ip, _, err := net.ParseCIDR(addr.String())
		if err != nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", errors.New("no IPv4 address found")
}
