package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pob-voting/models"
	"pob-voting/pkg/log"
)

// QueueProcessor feeds transactions to the voting service one at a time.
type QueueProcessor struct {
	votingService   *VotingService
	txCh            chan *TxRequest
	processingWg    sync.WaitGroup
	shutdownCh      chan struct{}
	stopOnce        sync.Once
	processingDelay time.Duration // For benchmarking purposes
	mu              sync.RWMutex
	stopped         bool
}

// TxRequest is a queued transaction.
type TxRequest struct {
	Ctx      context.Context
	Tx       models.Transaction
	ResultCh chan<- *ProcessingResult
}

// ProcessingResult is delivered exactly once per queued transaction.
type ProcessingResult struct {
	Receipt *models.Receipt
	Err     error
}

func NewQueueProcessor(votingService *VotingService, queueSize int, processingDelay time.Duration) *QueueProcessor {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &QueueProcessor{
		votingService:   votingService,
		txCh:            make(chan *TxRequest, queueSize),
		shutdownCh:      make(chan struct{}),
		processingDelay: processingDelay,
	}
}

func (qp *QueueProcessor) Start() {
	qp.processingWg.Add(1)
	go qp.txWorker()
}

// Stop refuses new work, finishes what is queued and waits for the worker.
func (qp *QueueProcessor) Stop() {
	qp.stopOnce.Do(func() {
		qp.mu.Lock()
		qp.stopped = true
		qp.mu.Unlock()
		close(qp.shutdownCh)
	})
	qp.processingWg.Wait()
}

// QueueTx adds a transaction to the queue. The returned channel yields one
// result and is then closed.
func (qp *QueueProcessor) QueueTx(ctx context.Context, tx models.Transaction) <-chan *ProcessingResult {
	resultCh := make(chan *ProcessingResult, 1)

	qp.mu.RLock()
	defer qp.mu.RUnlock()
	if qp.stopped {
		resultCh <- &ProcessingResult{Err: ErrQueueStopped}
		close(resultCh)
		return resultCh
	}
	select {
	case qp.txCh <- &TxRequest{Ctx: ctx, Tx: tx, ResultCh: resultCh}:
		queueDepth.Set(float64(len(qp.txCh)))
	default:
		resultCh <- &ProcessingResult{Err: ErrQueueFull}
		close(resultCh)
	}
	return resultCh
}

// Submit queues tx and waits for its result.
func (qp *QueueProcessor) Submit(ctx context.Context, tx models.Transaction) (*models.Receipt, error) {
	select {
	case res := <-qp.QueueTx(ctx, tx):
		return res.Receipt, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (qp *QueueProcessor) txWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case req := <-qp.txCh:
			qp.process(req)
		case <-qp.shutdownCh:
			// drain what was accepted before Stop
			for {
				select {
				case req := <-qp.txCh:
					qp.process(req)
				default:
					return
				}
			}
		}
	}
}

func (qp *QueueProcessor) process(req *TxRequest) {
	queueDepth.Set(float64(len(qp.txCh)))
	if qp.processingDelay > 0 {
		time.Sleep(qp.processingDelay)
	}
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	receipt, err := qp.votingService.Execute(ctx, req.Tx)
	if err != nil {
		log.L().Debug("queued transaction failed", zap.String("method", req.Tx.Method), zap.Error(err))
	}
	req.ResultCh <- &ProcessingResult{Receipt: receipt, Err: err}
	close(req.ResultCh)
}

// BatchQueueTx queues several transactions in order.
func (qp *QueueProcessor) BatchQueueTx(ctx context.Context, txs []models.Transaction) []<-chan *ProcessingResult {
	out := make([]<-chan *ProcessingResult, len(txs))
	for i, tx := range txs {
		out[i] = qp.QueueTx(ctx, tx)
	}
	return out
}
