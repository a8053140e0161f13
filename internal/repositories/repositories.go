// package repositories provides persistence layer implementations for the durable viewing state.
package repositories

import (
	"fmt"
	"strconv"
)

const (
	keyTheme       = "theme"
	keyAutoplay    = "autoplay"
	keyLoopWindow  = "loop_window"
	keyVolume      = "volume"
	keyLowPower    = "low_power"
	keyShowSidebar = "show_sidebar"
)

// PreferenceKeys lists the keys stored in the preferences table.
var PreferenceKeys = []string{keyTheme, keyAutoplay, keyLoopWindow, keyVolume, keyLowPower, keyShowSidebar}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("preference %s: invalid bool %q", key, value)
	}
	return b, nil
}
