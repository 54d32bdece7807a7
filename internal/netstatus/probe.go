package netstatus

import (
	"context"
	"log"
	"net"
	"os"
	"time"
)

// Prober feeds a Monitor by dialing a TCP address at a fixed interval.
// A successful dial means online. This is the reachability source only;
// it never triggers a sync by itself.
type Prober struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	monitor  *Monitor
	logger   *log.Logger
	dialer   net.Dialer
}

// NewProber creates a prober for addr ("host:port"). If logger is nil a
// default logger writing to stderr is used.
func NewProber(addr string, interval time.Duration, monitor *Monitor, logger *log.Logger) *Prober {
	if logger == nil {
		logger = log.New(os.Stderr, "[probe] ", log.LstdFlags)
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Prober{
		addr:     addr,
		interval: interval,
		timeout:  timeout,
		monitor:  monitor,
		logger:   logger,
	}
}

// Probe dials once and updates the monitor.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	online := err == nil
	if online {
		_ = conn.Close()
	}
	if online != p.monitor.Online() {
		if online {
			p.logger.Printf("%s reachable", p.addr)
		} else {
			p.logger.Printf("%s unreachable: %v", p.addr, err)
		}
	}
	p.monitor.SetOnline(online)
	return online
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Probe(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
