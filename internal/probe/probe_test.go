package probe

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// fakePinger replays a scripted sequence of echo outcomes.
type fakePinger struct {
	rtts  []time.Duration
	oks   []bool
	errs  []error
	calls int
}

func (f *fakePinger) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, bool, error) {
	i := f.calls
	f.calls++
	if i >= len(f.oks) {
		return 0, false, errors.New("fakePinger: unscripted call")
	}
	var rtt time.Duration
	if i < len(f.rtts) {
		rtt = f.rtts[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return rtt, f.oks[i], err
}

// steadyPinger answers every echo with the same round trip time.
type steadyPinger struct {
	rtt time.Duration
}

func (s *steadyPinger) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, bool, error) {
	return s.rtt, true, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
