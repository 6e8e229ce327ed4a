package business

import (
	"fmt"
	"strconv"
	"strings"
)

const businessIDPrefix = "biz_"

// IDCounter issues sequential business ids. It lives on the game state so
// saves carry it; RestoreFrom rebuilds it for snapshots that predate it.
type IDCounter struct {
	Next int `json:"next"`
}

// NextBusinessID returns a fresh id and advances the counter.
func (c *IDCounter) NextBusinessID() string {
	if c.Next < 1 {
		c.Next = 1
	}
	id := fmt.Sprintf("%s%d", businessIDPrefix, c.Next)
	c.Next++
	return id
}

// RestoreFrom moves the counter past every numeric id in ids.
func (c *IDCounter) RestoreFrom(ids []string) {
	maxSeen := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, businessIDPrefix))
		if err != nil || !strings.HasPrefix(id, businessIDPrefix) {
			continue
		}
		if n > maxSeen {
			maxSeen = n
		}
	}
	if c.Next <= maxSeen {
		c.Next = maxSeen + 1
	}
}
