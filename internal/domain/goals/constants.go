package goals

const (
	ApprovalDraft    = "draft"
	ApprovalPending  = "pending_approval"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"

	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	// AuditWithdrawn only appears in the audit trail; a withdrawn goal keeps
	// the approval status it had.
	AuditWithdrawn = "withdrawn"

	DefaultCategory = "general"
	DefaultPriority = "medium"

	// MaxParentDepth bounds walks up the parent-goal chain.
	MaxParentDepth = 10
)

var ApprovalStatuses = []string{ApprovalDraft, ApprovalPending, ApprovalApproved, ApprovalRejected}

var Statuses = []string{StatusDraft, StatusActive, StatusCompleted, StatusCancelled}

var Priorities = []string{"low", DefaultPriority, "high", "critical"}

const (
	UnitPercentage = "percentage"
	UnitCount      = "count"
	UnitCurrency   = "currency"
	UnitBoolean    = "boolean"

	KeyResultNotStarted = "not_started"
	KeyResultInProgress = "in_progress"
	KeyResultCompleted  = "completed"

	CommentUpdate      = "update"
	CommentFeedback    = "feedback"
	CommentBlocker     = "blocker"
	CommentAchievement = "achievement"
)

var Units = []string{UnitPercentage, UnitCount, UnitCurrency, UnitBoolean}

var KeyResultStatuses = []string{KeyResultNotStarted, KeyResultInProgress, KeyResultCompleted}

var CommentTypes = []string{CommentUpdate, CommentFeedback, CommentBlocker, CommentAchievement}
