package service

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"pob-voting/adapter"
	"pob-voting/models"
)

// EntityResult is the majority outcome of one entity.
type EntityResult struct {
	Entity  string         `json:"entity"`
	Project common.Address `json:"project"`
	Found   bool           `json:"found"`
}

// ProjectResult is the tally of one project.
type ProjectResult struct {
	Project   common.Address       `json:"project"`
	Breakdown models.VoteBreakdown `json:"breakdown"`
	Score     string               `json:"score"`
}

// RoundResults is a consistent snapshot of a round.
type RoundResults struct {
	Iteration      uint64                     `json:"iteration"`
	Round          uint64                     `json:"round"`
	Contract       common.Address             `json:"contract"`
	Version        uint64                     `json:"version"`
	Mode           models.VotingMode          `json:"mode"`
	ModeOverridden bool                       `json:"mode_overridden"`
	Active         bool                       `json:"active"`
	Ended          bool                       `json:"ended"`
	Locked         bool                       `json:"locked"`
	StartTime      int64                      `json:"start_time"`
	EndTime        int64                      `json:"end_time"`
	Winner         models.Winner              `json:"winner"`
	Consensus      models.Winner              `json:"consensus"`
	Weighted       models.Winner              `json:"weighted"`
	Entities       []EntityResult             `json:"entities"`
	Participation  models.ParticipationCounts `json:"participation"`
	Projects       []ProjectResult            `json:"projects"`
}

// ResultsService builds result snapshots through the adapter layer.
type ResultsService struct {
	votingService *VotingService
}

func NewResultsService(vs *VotingService) *ResultsService {
	return &ResultsService{votingService: vs}
}

// RoundResults reads a round. A set override replaces both the configured
// override and the contract's own mode for this read.
func (rs *ResultsService) RoundResults(iteration, round uint64, override adapter.ModeOverride) (*RoundResults, error) {
	vs := rs.votingService
	if !override.Set {
		override = vs.ModeOverride(iteration, round)
	}

	now := vs.Now()
	var res *RoundResults
	err := vs.View(func() error {
		a, rd, err := vs.Adapter(iteration, round)
		if err != nil {
			return err
		}
		res = &RoundResults{
			Iteration:      iteration,
			Round:          round,
			Contract:       rd.Contract,
			Version:        rd.Version,
			Mode:           a.VotingMode(override),
			ModeOverridden: override.Set,
			Active:         a.IsActive(now),
			Ended:          a.VotingEnded(now),
			Locked:         a.Locked(),
			Winner:         a.GetWinner(override),
			Consensus:      a.GetWinnerConsensus(),
			Participation:  a.GetVoteParticipationCounts(),
		}
		if t := a.StartTime(); !t.IsZero() {
			res.StartTime = t.Unix()
			res.EndTime = a.EndTime().Unix()
		}

		for e := models.EntityID(0); e < models.NumEntities; e++ {
			w, err := a.GetEntityVote(e)
			if err != nil {
				return err
			}
			res.Entities = append(res.Entities, EntityResult{Entity: e.String(), Project: w.Project, Found: w.Found})
		}

		scored := a.GetWinnerWithScores()
		res.Weighted = scored.Winner
		scores := make(map[common.Address]string, len(scored.Projects))
		for i, p := range scored.Projects {
			scores[p] = scored.Scores[i].Dec()
		}
		for _, p := range a.GetProjectAddresses() {
			score, ok := scores[p]
			if !ok {
				score = "0"
			}
			res.Projects = append(res.Projects, ProjectResult{
				Project:   p,
				Breakdown: a.GetProjectVoteBreakdown(p),
				Score:     score,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EntityVoters lists the voters of an account-based entity and their votes.
func (rs *ResultsService) EntityVoters(iteration, round uint64, entity models.EntityID) ([]VoterVote, error) {
	vs := rs.votingService
	var out []VoterVote
	err := vs.View(func() error {
		a, _, err := vs.Adapter(iteration, round)
		if err != nil {
			return err
		}
		voters, err := a.GetEntityVoters(entity)
		if err != nil {
			return err
		}
		out = make([]VoterVote, 0, len(voters))
		for _, v := range voters {
			voted, err := a.EntityHasVoted(entity, v)
			if err != nil {
				return err
			}
			project, err := a.EntityVoteOf(entity, v)
			if err != nil {
				return err
			}
			out = append(out, VoterVote{Voter: v, HasVoted: voted, Project: project})
		}
		return nil
	})
	return out, err
}

// VoterVote is one entity member and its vote.
type VoterVote struct {
	Voter    common.Address `json:"voter"`
	HasVoted bool           `json:"has_voted"`
	Project  common.Address `json:"project"`
}

// PreviousRounds returns the results of the rounds before contract in its
// iteration, oldest first.
func (rs *ResultsService) PreviousRounds(contract common.Address) ([]*RoundResults, error) {
	vs := rs.votingService
	prev, err := vs.Registry().GetPrevRoundContracts(contract)
	if err != nil {
		return nil, err
	}
	out := make([]*RoundResults, 0, len(prev))
	for _, c := range prev {
		rd, err := vs.Registry().GetRoundByContract(c)
		if err != nil {
			return nil, err
		}
		res, err := rs.RoundResults(rd.Iteration, rd.Round, adapter.NoOverride)
		if err != nil {
			return nil, errors.Wrapf(err, "iteration %d round %d", rd.Iteration, rd.Round)
		}
		out = append(out, res)
	}
	return out, nil
}
