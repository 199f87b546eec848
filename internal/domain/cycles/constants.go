package cycles

const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusArchived  = "archived"

	TypeAnnual    = "annual"
	TypeMidYear   = "mid_year"
	TypeProbation = "probation"
	TypeAdHoc     = "ad_hoc"

	QuestionRating     = "rating"
	QuestionText       = "text"
	QuestionCompetency = "competency"

	// Deadlines may trail the cycle end by this many days.
	deadlineGraceDays = 90
)

var Types = []string{TypeAnnual, TypeMidYear, TypeProbation, TypeAdHoc}

var QuestionTypes = []string{QuestionRating, QuestionText, QuestionCompetency}
