package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Publisher is what feature services depend on: fire a message and move on.
type Publisher interface {
	Notify(phone string, message string)
}

// Dispatcher sends messages in the background. Delivery failures are logged
// and never reach the caller.
type Dispatcher struct {
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, log: log, timeout: 20 * time.Second}
}

func (d *Dispatcher) Notify(phone string, message string) {
	if phone == "" {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Send(ctx, phone, message); err != nil {
			d.log.Warn("Unable to deliver notification", zap.String("phone", phone), zap.Error(err))
			return
		}
		d.log.Debug("Notification delivered", zap.String("phone", phone))
	}()
}

// Wait blocks until in-flight messages finish; used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
