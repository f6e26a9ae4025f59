// internal/pipeline/stage.go
package pipeline

import (
	"io"
)

// Stage is a step of a tokenization run.
type Stage int

const (
	Idle Stage = iota
	Uploading
	Tokenizing
	CreatingPool
	Completed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Tokenizing:
		return "tokenizing"
	case CreatingPool:
		return "creating_pool"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// ParseStage is the inverse of Stage.String.
func ParseStage(name string) (Stage, bool) {
	for s := Idle; s <= Completed; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return Idle, false
}

// StageInfo is one row of the stage table.
type StageInfo struct {
	Stage   Stage
	Percent int
	Message string
}

// Stages lists the run stages in the order they are entered.
var Stages = []StageInfo{
	{Stage: Uploading, Percent: 25, Message: "Uploading data to Irys..."},
	{Stage: Tokenizing, Percent: 60, Message: "Creating data tokens..."},
	{Stage: CreatingPool, Percent: 85, Message: "Setting up liquidity pool..."},
	{Stage: Completed, Percent: 100, Message: "Token created successfully!"},
}

// File is the dataset being tokenized. Source is opaque to the pipeline.
type File struct {
	Name   string
	Size   int64
	Source io.Reader
}

// Progress is what observers see of the active run.
type Progress struct {
	RunID   string
	Stage   Stage
	Percent int
	Message string
	File    File
}

// AssetID identifies the issued data token.
type AssetID string
