package coordinator

import "time"

// nowUnix returns the current wall-clock time as a block timestamp.
func nowUnix() uint32 {
	return uint32(time.Now().UTC().Unix())
}
