package leaserenew

import "time"

// timings are the fixed waits of a login and a renewal.
type timings struct {
	poll         time.Duration // element and landing polling interval
	navigate     time.Duration // upper bound on a single page load
	loginSettle  time.Duration
	formWait     time.Duration
	fieldWait    time.Duration // per locator strategy
	captchaWait  time.Duration
	landingWait  time.Duration
	landingGrace time.Duration
	serverSettle time.Duration
	scrollPause  time.Duration
	confirm      time.Duration
}

var defaultTimings = timings{
	poll:         500 * time.Millisecond,
	navigate:     60 * time.Second,
	loginSettle:  5 * time.Second,
	formWait:     20 * time.Second,
	fieldWait:    20 * time.Second,
	captchaWait:  45 * time.Second,
	landingWait:  60 * time.Second,
	landingGrace: 10 * time.Second,
	serverSettle: 5 * time.Second,
	scrollPause:  time.Second,
	confirm:      10 * time.Second,
}
