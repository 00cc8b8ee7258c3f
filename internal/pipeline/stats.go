package pipeline

import "fmt"

// Stats is a point-in-time snapshot of pipeline activity
// ItemsInTransit is TotalProduced minus TotalConsumed: items that have been
// enqueued but not yet appended to a destination
type Stats struct {
	// NumProducers is the number of registered producer workers
	NumProducers int `json:"num_producers" yaml:"num_producers"`

	// NumConsumers is the number of registered consumer workers
	NumConsumers int `json:"num_consumers" yaml:"num_consumers"`

	// TotalProduced counts items confirmed enqueued across all producers
	TotalProduced int `json:"total_produced" yaml:"total_produced"`

	// TotalConsumed counts items delivered to destinations across all consumers
	TotalConsumed int `json:"total_consumed" yaml:"total_consumed"`

	// BufferSize is the live queue occupancy
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`

	// ItemsInTransit is produced minus consumed; zero at quiescence
	ItemsInTransit int `json:"items_in_transit" yaml:"items_in_transit"`
}

// String returns a human-readable one-line representation of the snapshot
func (s Stats) String() string {
	return fmt.Sprintf("Producers: %d, Consumers: %d, Produced: %d, Consumed: %d, In Transit: %d, Buffered: %d",
		s.NumProducers,
		s.NumConsumers,
		s.TotalProduced,
		s.TotalConsumed,
		s.ItemsInTransit,
		s.BufferSize)
}
