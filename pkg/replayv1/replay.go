// Package replayv1 defines the wire messages and gRPC service of the replay
// service. Messages travel as JSON through the codec registered in codec.go.
package replayv1

// Transition is one recorded environment step
type Transition struct {
	State     []float32 `json:"state"`
	Action    []float32 `json:"action"`
	Reward    float32   `json:"reward"`
	NextState []float32 `json:"next_state"`
	Done      bool      `json:"done"`
}

type PushRequest struct {
	Transitions []*Transition `json:"transitions"`
	// Priorities is optional; when empty the buffer assigns its current
	// maximum priority.
	Priorities []float64 `json:"priorities,omitempty"`
}

type PushResponse struct {
	Indices []int64 `json:"indices"`
	Len     uint64  `json:"len"`
}

type SampleRequest struct {
	BatchSize uint32 `json:"batch_size"`
}

type SampleResponse struct {
	Transitions []*Transition `json:"transitions"`
	Weights     []float64     `json:"weights"`
	Indices     []int64       `json:"indices"`
	Prioritized bool          `json:"prioritized"`
}

type UpdatePrioritiesRequest struct {
	Indices    []int64   `json:"indices"`
	Priorities []float64 `json:"priorities"`
}

type UpdatePrioritiesResponse struct {
	UpdatedCount uint32 `json:"updated_count"`
}

type GetStatsRequest struct{}

type StatsResponse struct {
	Len           uint64  `json:"len"`
	Capacity      uint64  `json:"capacity"`
	Prioritized   bool    `json:"prioritized"`
	Alpha         float64 `json:"alpha"`
	Beta          float64 `json:"beta"`
	MaxPriority   float64 `json:"max_priority"`
	TotalPriority float64 `json:"total_priority"`
	Phase         string  `json:"phase"`
}

type ExportRequest struct{}

type ExportResponse struct {
	Transitions []*Transition `json:"transitions"`
	MaxPriority float64       `json:"max_priority"`
}

type SetBetaRequest struct {
	Beta float64 `json:"beta"`
}

type SetBetaResponse struct {
	Beta float64 `json:"beta"`
}

type CheckpointRequest struct{}

type CheckpointResponse struct {
	CheckpointId string `json:"checkpoint_id"`
	Records      uint64 `json:"records"`
	Checksum     string `json:"checksum"`
	CreatedAt    int64  `json:"created_at"`
}
