package notifier

import (
	"context"
	"sync"

	"github.com/nordlys-fintech/fraud-detector/internal/metrics"
)

// alertSender is satisfied by *Notifier.
type alertSender interface {
	SendFraudAlert(ctx context.Context, alert Alert) map[string]bool
}

// Dispatcher decouples notification delivery from the consumer loop: alerts
// are queued and delivered by a bounded worker pool, so a slow or failing
// channel cannot stall message consumption. The queue is bounded; when it is
// full the alert is dropped and counted rather than blocking the pipeline.
type Dispatcher struct {
	sender     alertSender
	queue      chan Alert
	numWorkers int
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

func NewDispatcher(sender alertSender, numWorkers int, queueDepth int) *Dispatcher {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &Dispatcher{
		sender:     sender,
		queue:      make(chan Alert, queueDepth),
		numWorkers: numWorkers,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for alert := range d.queue {
				d.sender.SendFraudAlert(context.Background(), alert)
			}
		}()
	}
}

// Dispatch enqueues an alert without blocking. Returns false when the queue
// is full.
func (d *Dispatcher) Dispatch(alert Alert) bool {
	select {
	case d.queue <- alert:
		return true
	default:
		metrics.NotificationsDropped.Inc()
		return false
	}
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
