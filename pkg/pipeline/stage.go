package pipeline

import "fmt"

// State identifies where the pipeline is in its single-pass run. A run
// moves strictly forward: Idle → Loading → BuildingMetadata → Training →
// Sampling → Reassembling → Validating → Done, with Failed as the only
// other terminal state.
type State string

const (
	StateIdle             State = "idle"
	StateLoading          State = "loading"
	StateBuildingMetadata State = "building_metadata"
	StateTraining         State = "training"
	StateSampling         State = "sampling"
	StateReassembling     State = "reassembling"
	StateValidating       State = "validating"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// StageError wraps a stage failure with the stage it happened in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
