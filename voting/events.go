package voting

// Event names emitted by voting contracts.
const (
	EventProjectRegistered    = "ProjectRegistered"
	EventProjectRemoved       = "ProjectRemoved"
	EventVoterAdded           = "VoterAdded"
	EventVoterRemoved         = "VoterRemoved"
	EventVoted                = "Voted"
	EventVoteRetracted        = "VoteRetracted"
	EventActivated            = "Activated"
	EventClosedManually       = "ClosedManually"
	EventLockedForHistory     = "LockedForHistory"
	EventVotingModeSet        = "VotingModeSet"
	EventOwnershipTransferred = "OwnershipTransferred"
	EventUpgraded             = "Upgraded"
)
