// Package snowflake generates time-ordered 64-bit message ids. Ids from a
// single node are strictly increasing, so within a channel the id order is
// the persistence order.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits  = 10
	stepBits  = 12
	nodeMax   = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits

	// 2024-01-01 00:00:00 UTC
	epoch int64 = 1704067200000
)

// ID is a snowflake message id.
type ID int64

// Time recovers the millisecond timestamp encoded in the id.
func (id ID) Time() time.Time {
	ms := (int64(id) >> timeShift) + epoch
	return time.UnixMilli(ms)
}

func (id ID) Int64() int64 { return int64(id) }

type Node struct {
	mu   sync.Mutex
	last int64
	node int64
	step int64
}

// NewNode creates a generator. The node id must be unique per process that
// persists messages (taken from SNOWFLAKE_NODE in deployment).
func NewNode(node int64) (*Node, error) {
	if node < 0 || node > nodeMax {
		return nil, errors.New("snowflake: node id must be between 0 and 1023")
	}
	return &Node{node: node}, nil
}

func (n *Node) Generate() ID {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.last {
		// Clock moved backwards, keep issuing from the last step.
		now = n.last
	}

	if now == n.last {
		n.step = (n.step + 1) & stepMask
		if n.step == 0 {
			for now <= n.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.step = 0
	}
	n.last = now

	return ID(((now - epoch) << timeShift) | (n.node << nodeShift) | n.step)
}
