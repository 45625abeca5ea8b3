package sim

import "time"

// CommandType names a command in logs and API responses.
type CommandType string

const (
	CmdSetVariance   CommandType = "set_variance"
	CmdClearVariance CommandType = "clear_variance"
	CmdPause         CommandType = "pause"
	CmdResume        CommandType = "resume"
	CmdResetMission  CommandType = "reset_mission"
)

// Command is an operator input to a running Engine.
type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
}

// SetVarianceCommand pins the GPS variance fed to the agent, overriding
// the scenario's jamming schedule until cleared.
type SetVarianceCommand struct {
	At       time.Time
	Variance float64 `json:"variance"`
}

func (c SetVarianceCommand) Type() CommandType     { return CmdSetVariance }
func (c SetVarianceCommand) ReceivedAt() time.Time { return c.At }

// ClearVarianceCommand hands the GPS variance back to the schedule.
type ClearVarianceCommand struct{ At time.Time }

func (c ClearVarianceCommand) Type() CommandType     { return CmdClearVariance }
func (c ClearVarianceCommand) ReceivedAt() time.Time { return c.At }

// PauseCommand freezes simulation time; the engine keeps answering state
// requests.
type PauseCommand struct{ At time.Time }

func (c PauseCommand) Type() CommandType     { return CmdPause }
func (c PauseCommand) ReceivedAt() time.Time { return c.At }

// ResumeCommand restarts simulation time after a pause.
type ResumeCommand struct{ At time.Time }

func (c ResumeCommand) Type() CommandType     { return CmdResume }
func (c ResumeCommand) ReceivedAt() time.Time { return c.At }

// ResetMissionCommand sends the aircraft back to the first waypoint of
// its route without moving it.
type ResetMissionCommand struct{ At time.Time }

func (c ResetMissionCommand) Type() CommandType     { return CmdResetMission }
func (c ResetMissionCommand) ReceivedAt() time.Time { return c.At }
