package fetch

import "log"

// Observer is told after every attempt how far a batch has got.
// done counts attempts, not successes.
type Observer interface {
	OnProgress(done, total int)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(done, total int)

func (f ObserverFunc) OnProgress(done, total int) { f(done, total) }

// LogObserver prints "<done>/<total> images downloaded".
type LogObserver struct {
	Logger *log.Logger
}

func (o LogObserver) OnProgress(done, total int) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("%d/%d images downloaded", done, total)
}

// Observers fans progress out to several observers in order.
type Observers []Observer

func (obs Observers) OnProgress(done, total int) {
	for _, o := range obs {
		if o != nil {
			o.OnProgress(done, total)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnProgress(int, int) {}
