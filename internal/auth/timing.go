package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig pads failed logins so unknown usernames and wrong passwords take similar time
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay pads authentication responses to a minimum duration
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoRandIntn returns a random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

// WaitFrom sleeps until at least base+random delay has elapsed since startTime.
// A nil TimingDelay never waits.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	baseDelay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	var randomDelay time.Duration
	if td.config.RandomDelayMs > 0 {
		randomValue, err := cryptoRandIntn(td.config.RandomDelayMs)
		if err == nil {
			randomDelay = time.Duration(randomValue) * time.Millisecond
		}
	}
	targetDelay := baseDelay + randomDelay

	if elapsed := time.Since(startTime); elapsed < targetDelay {
		td.sleep(targetDelay - elapsed)
	}
}
