package party

import "errors"

var (
	ErrPartyNotFound       = errors.New("party not found")
	ErrPartyExists         = errors.New("quest already has a party")
	ErrMemberNotFound      = errors.New("party member not found")
	ErrAlreadyMember       = errors.New("user is already an active member of this party")
	ErrPartyFull           = errors.New("party has reached the quest size limit")
	ErrPartyNotActive      = errors.New("party is not active")
	ErrNotPartyLeader      = errors.New("only party leaders can perform this action")
	ErrCannotRemoveCreator = errors.New("the quest creator cannot be removed from the party")
	ErrQuestNotFound       = errors.New("quest not found")
)
