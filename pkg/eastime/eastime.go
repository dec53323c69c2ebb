// Package eastime formats the uint64 unix-second timestamps EAS stores.
package eastime

import (
	"time"
)

type EASTime string

// Never is how a zero expiration or revocation time reads.
const Never EASTime = "never"

var fstr = "2006-01-02T15:04:05Z"

// FromSec returns a consistently formatted timestamp, or Never for zero.
func FromSec(sec uint64) EASTime {
	if sec == 0 {
		return Never
	}
	return EASTime(time.Unix(int64(sec), 0).UTC().Format(fstr))
}

func (et EASTime) String() string {
	return string(et)
}
