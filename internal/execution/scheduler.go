package execution

import "fmt"

// Scheduler distributes case queries across shards
type Scheduler interface {
	Schedule(queries []string, shardCount int) [][]string
}

// RoundRobinScheduler distributes queries evenly across shards
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule distributes queries evenly using round-robin
func (s *RoundRobinScheduler) Schedule(queries []string, shardCount int) [][]string {
	if shardCount <= 0 {
		shardCount = 1
	}

	distribution := make([][]string, shardCount)
	for i := range distribution {
		distribution[i] = make([]string, 0)
	}

	for i, q := range queries {
		shard := i % shardCount
		distribution[shard] = append(distribution[shard], q)
	}

	return distribution
}

// Shard returns the queries assigned to shard index of count
func Shard(s Scheduler, queries []string, index, count int) ([]string, error) {
	if count <= 0 {
		return queries, nil
	}
	if index < 0 || index >= count {
		return nil, fmt.Errorf("shard index %d out of range [0, %d)", index, count)
	}
	return s.Schedule(queries, count)[index], nil
}
