// Package network provides the UDP and WebSocket transports of the agent
// and LAN discovery of running agents.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DiscoveredAgent represents a vinput agent found on the network
type DiscoveredAgent struct {
	Addr    string `json:"addr"`
	Backend string `json:"backend"`
	Version string `json:"version"`
}

// Health is the body served on /health by an agent
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Backend string `json:"backend"`
	Version string `json:"version"`
}

// ServiceName identifies vinput agents in Health responses
const ServiceName = "vinput"

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// ScanLAN probes every address of the local /24 for an agent on port.
func ScanLAN(ctx context.Context, port int) ([]DiscoveredAgent, error) {
	localIP, err := GetLocalIP()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IP: %w", err)
	}

	parts := strings.Split(localIP, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid IP address format: %s", localIP)
	}
	subnet := strings.Join(parts[:3], ".")

	var (
		agents []DiscoveredAgent
		mu     sync.Mutex
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(64)
	for i := 1; i <= 254; i++ {
		ip := fmt.Sprintf("%s.%d", subnet, i)
		if ip == localIP {
			continue
		}
		g.Go(func() error {
			if agent, ok := ProbeAgent(ctx, net.JoinHostPort(ip, fmt.Sprint(port))); ok {
				mu.Lock()
				agents = append(agents, agent)
				mu.Unlock()
			}
			return nil
		})
	}
	err = g.Wait()
	return agents, err
}

// ProbeAgent checks whether addr ("host:port") serves a vinput /health.
func ProbeAgent(ctx context.Context, addr string) (DiscoveredAgent, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return DiscoveredAgent{}, false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return DiscoveredAgent{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DiscoveredAgent{}, false
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil || h.Service != ServiceName {
		return DiscoveredAgent{}, false
	}
	return DiscoveredAgent{Addr: addr, Backend: h.Backend, Version: h.Version}, true
}

// GetLocalIPs returns all available local IPv4 addresses
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip = ip.To4(); ip != nil {
				ips = append(ips, ip.String())
			}
		}
	}
	return ips, nil
}
