package rating

import "errors"

var (
	ErrRatingNotFound = errors.New("rating not found")
	ErrNotRater       = errors.New("only the rating author can perform this action")
	ErrPartyNotDone   = errors.New("ratings open once the party is completed")
	ErrNotPartyMember = errors.New("both users must be members of the party")
	ErrSelfRating     = errors.New("you cannot rate yourself")
	ErrAlreadyRated   = errors.New("you already rated this user for this party")
)
