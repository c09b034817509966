package authzclient

import (
	"net"
	"os"
	"strings"
)

// deviceID mirrors libsgnl.c's device-id resolution: /etc/machine-id,
// falling back to the hostname, falling back to the first non-loopback
// interface's MAC address, falling back to the literal "unknown-device".
// Every step is best-effort; none of them can fail the caller.
func deviceID() string {
	if id, ok := readMachineID("/etc/machine-id"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if mac, ok := firstMACAddress(); ok {
		return mac
	}
	return "unknown-device"
}

func readMachineID(path string) (string, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", false
	}
	return id, true
}

func firstMACAddress() (string, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addr := iface.HardwareAddr.String()
		if addr != "" {
			return addr, true
		}
	}
	return "", false
}
