// Package domain holds the lead pipeline model shared by the leads
// repository, service, and HTTP layers.
package domain

// Stage is a lead's position in the sales pipeline.
type Stage string

const (
	StageNew       Stage = "New"
	StageContacted Stage = "Contacted"
	StageQualified Stage = "Qualified"
	StageWon       Stage = "Won"
	StageLost      Stage = "Lost"
)

// Stages lists every pipeline stage in funnel order.
var Stages = []Stage{StageNew, StageContacted, StageQualified, StageWon, StageLost}

// ParseStage validates a raw stage value against the fixed pipeline.
func ParseStage(raw string) (Stage, bool) {
	for _, stage := range Stages {
		if string(stage) == raw {
			return stage, true
		}
	}
	return "", false
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	return string(s)
}
