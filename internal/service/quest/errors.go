package quest

import "errors"

var (
	ErrQuestNotFound       = errors.New("quest not found")
	ErrApplicationNotFound = errors.New("application not found")

	// Permission errors (403)
	ErrNotQuestCreator = errors.New("only the quest creator can perform this action")
	ErrNotAuthorized   = errors.New("not enough permissions")
	ErrPrivateQuest    = errors.New("this quest only accepts applications from its parent party")

	// State errors (400)
	ErrQuestNotRecruiting = errors.New("quest is not recruiting")
	ErrQuestNotInProgress = errors.New("quest is not in progress")
	ErrQuestNotCancelable = errors.New("only recruiting or in-progress quests can be cancelled")
	ErrPartyTooSmall      = errors.New("not enough approved members to meet the minimum party size")
	ErrNotPublicizable    = errors.New("only internal or hybrid party quests can be publicized")
	ErrNotInternalQuest   = errors.New("only internal or hybrid party quests support member assignment")
	ErrInvalidAssignees   = errors.New("assignees must be active members of the parent party")

	// Validation errors (400)
	ErrInvalidPartySize = errors.New("minimum party size cannot be greater than maximum party size")
	ErrInvalidSchedule  = errors.New("deadline must be after start date")
	ErrStartInPast      = errors.New("start date cannot be in the past")

	// Application errors
	ErrSelfApplication       = errors.New("you cannot apply to your own quest")
	ErrAlreadyApplied        = errors.New("you already have an open application for this quest")
	ErrApplicationNotPending = errors.New("only pending applications can be modified")
	ErrNotApplicant          = errors.New("only the applicant can perform this action")
)
