package utilities

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// SetSnowflakeNode replaces the node used by NewSnowflakeID. Invalid node ids
// keep the current node.
func SetSnowflakeNode(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

// NewSnowflakeID returns a time-ordered id from the process node (node 1 unless
// SetSnowflakeNode was called). Falls back to a KSUID if no node can be built.
func NewSnowflakeID() string {
	nodeMu.Lock()
	if node == nil {
		n, err := snowflake.NewNode(1)
		if err != nil {
			nodeMu.Unlock()
			return NewKSUID()
		}
		node = n
	}
	n := node
	nodeMu.Unlock()
	return n.Generate().String()
}
