// Package chaintest provides a recording domain.ChainClient for tests.
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Call is one recorded client invocation.
type Call struct {
	Chain   domain.Chain
	Method  string // "address" or "broadcast"
	Deposit domain.Deposit
}

// Journal records calls across several clients in global order.
type Journal struct {
	mu    sync.Mutex
	calls []Call
}

func (j *Journal) add(c Call) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, c)
}

// Calls returns a copy of every recorded call.
func (j *Journal) Calls() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Call(nil), j.calls...)
}

// Broadcasts returns only broadcast calls.
func (j *Journal) Broadcasts() []Call {
	var out []Call
	for _, c := range j.Calls() {
		if c.Method == "broadcast" {
			out = append(out, c)
		}
	}
	return out
}

// CountFor returns the number of calls of any kind made on chain.
func (j *Journal) CountFor(chain domain.Chain) int {
	n := 0
	for _, c := range j.Calls() {
		if c.Chain == chain {
			n++
		}
	}
	return n
}

// Client is a fake chain client. Tx ids are "<chain>-tx-<n>".
type Client struct {
	ChainID      domain.Chain
	Addr         string
	AddressErr   error
	BroadcastErr error
	// BeforeBroadcast runs before a broadcast is recorded; a non-nil error
	// fails the broadcast.
	BeforeBroadcast func(ctx context.Context, d domain.Deposit) error

	journal *Journal
	mu      sync.Mutex
	n       int
}

// NewClient creates a fake for chain writing to j.
func NewClient(j *Journal, chain domain.Chain, addr string) *Client {
	return &Client{ChainID: chain, Addr: addr, journal: j}
}

func (c *Client) Chain() domain.Chain { return c.ChainID }

func (c *Client) Address(ctx context.Context) (string, error) {
	c.journal.add(Call{Chain: c.ChainID, Method: "address"})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.AddressErr != nil {
		return "", c.AddressErr
	}
	return c.Addr, nil
}

func (c *Client) BuildAndBroadcast(ctx context.Context, d domain.Deposit) (string, error) {
	c.journal.add(Call{Chain: c.ChainID, Method: "broadcast", Deposit: d})
	if c.BeforeBroadcast != nil {
		if err := c.BeforeBroadcast(ctx, d); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.BroadcastErr != nil {
		return "", c.BroadcastErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("%s-tx-%d", c.ChainID, c.n), nil
}

var _ domain.ChainClient = (*Client)(nil)
