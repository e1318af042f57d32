package domain

// Stage is a lead's position in the sales pipeline.
type Stage string

const (
	StageNew       Stage = "new"
	StageContacted Stage = "contacted"
	StageQualified Stage = "qualified"
	StageConverted Stage = "converted"
	StageLost      Stage = "lost"
)

// DefaultStage is assigned to leads created without an explicit stage.
const DefaultStage = StageNew

var knownStages = map[Stage]struct{}{
	StageNew:       {},
	StageContacted: {},
	StageQualified: {},
	StageConverted: {},
	StageLost:      {},
}

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{StageNew, StageContacted, StageQualified, StageConverted, StageLost}
}

func IsKnownStage(stage Stage) bool {
	_, ok := knownStages[stage]
	return ok
}
