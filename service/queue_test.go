package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pob-voting/models"
	"pob-voting/voting"
)

func TestQueueProcessesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	require := require.New(t)
	e := newEnv(t, Config{})
	r := e.setupRound()

	qp := NewQueueProcessor(e.s, 16, 0)
	qp.Start()

	// nonces are assigned up front, so order matters
	k := r.smt[0]
	first := e.signed(k, r.contract, MethodVoteSmt, map[string]string{"project": projA.Hex()})
	second := first
	second.Args = map[string]string{"project": projB.Hex()}
	second.Nonce = first.Nonce + 1
	require.NoError(e.cs.SignTx(&second, k))

	results := qp.BatchQueueTx(context.Background(), []models.Transaction{first, second, first})
	var got []*ProcessingResult
	for _, ch := range results {
		res, ok := <-ch
		require.True(ok)
		got = append(got, res)
		_, open := <-ch
		require.False(open)
	}
	require.NoError(got[0].Err)
	require.NoError(got[1].Err)
	require.Equal(got[0].Receipt.BlockIndex+1, got[1].Receipt.BlockIndex)
	require.Equal(ErrStaleNonce, errors.Cause(got[2].Err))

	qp.Stop()
	res := <-qp.QueueTx(context.Background(), first)
	require.Equal(ErrQueueStopped, res.Err)
}

func TestQueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)
	require := require.New(t)
	e := newEnv(t, Config{})

	// not started: nothing drains the buffer
	qp := NewQueueProcessor(e.s, 1, 0)
	tx := e.signed(e.key(), e.s.Registry().Address(), MethodRegisterIteration, map[string]string{"iteration": "1", "chainId": "1"})
	pending := qp.QueueTx(context.Background(), tx)
	res := <-qp.QueueTx(context.Background(), tx)
	require.Equal(ErrQueueFull, res.Err)

	// Stop drains what was accepted
	qp.Start()
	qp.Stop()
	res = <-pending
	require.Equal(voting.ErrOwnerOnly, errors.Cause(res.Err))
}

func TestQueueSubmitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	require := require.New(t)
	e := newEnv(t, Config{})

	qp := NewQueueProcessor(e.s, 4, 50*time.Millisecond)
	qp.Start()
	defer qp.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	tx := e.signed(e.key(), e.s.Registry().Address(), MethodRegisterIteration, map[string]string{"iteration": "1", "chainId": "1"})
	_, err := qp.Submit(ctx, tx)
	require.Equal(context.DeadlineExceeded, err)
}
