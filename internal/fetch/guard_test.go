package fetch

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPPermitted(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", false},
		{"169.254.169.254", false},
		{"10.0.0.5", false},
		{"172.16.0.1", false},
		{"172.31.255.255", false},
		{"192.168.1.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"fc00::1", false},
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
	}
	for _, tc := range tests {
		t.Run(tc.ip, func(t *testing.T) {
			ip := net.ParseIP(tc.ip)
			assert.Equal(t, tc.want, ipPermitted(ip))
		})
	}
}

func TestIPPermittedNil(t *testing.T) {
	assert.False(t, ipPermitted(nil))
}
