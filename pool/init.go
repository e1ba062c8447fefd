package pool

import (
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

var FetchQueue *Queue

func Init() {
	var err error
	if FetchQueue, err = NewQueue(config.Get().Fetch.NumWorkers, "fetches"); err != nil {
		sentry.CaptureException(err)
		logrus.Error("Error setting up fetch queue")
		logrus.Fatal(err)
	}
}

func AdjustSize() {
	FetchQueue.Resize(config.Get().Fetch.NumWorkers)
}

func Drain() {
	FetchQueue.Drain()
}
