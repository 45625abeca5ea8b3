package agent

import "fmt"

// SensorStatus is the health of a single named sensor.
type SensorStatus int

const (
	Operational SensorStatus = iota
	Degraded
	Failed
	Unknown
)

var sensorStatusNames = [...]string{
	Operational: "OPERATIONAL",
	Degraded:    "DEGRADED",
	Failed:      "FAILED",
	Unknown:     "UNKNOWN",
}

func (s SensorStatus) String() string {
	if s < 0 || int(s) >= len(sensorStatusNames) {
		return fmt.Sprintf("SensorStatus(%d)", int(s))
	}
	return sensorStatusNames[s]
}

func (s SensorStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(sensorStatusNames) {
		return nil, fmt.Errorf("invalid sensor status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *SensorStatus) UnmarshalText(b []byte) error {
	for i, name := range sensorStatusNames {
		if name == string(b) {
			*s = SensorStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sensor status %q", string(b))
}

// NavigationMode is the navigation strategy in force. Exactly one is
// active at a time.
type NavigationMode int

const (
	ModeGPS NavigationMode = iota
	ModeMagNav
	ModeDeadReckoning
)

var modeNames = [...]string{
	ModeGPS:           "GPS",
	ModeMagNav:        "MAG_NAV",
	ModeDeadReckoning: "DEAD_RECKONING",
}

func (m NavigationMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("NavigationMode(%d)", int(m))
	}
	return modeNames[m]
}

func (m NavigationMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("invalid navigation mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *NavigationMode) UnmarshalText(b []byte) error {
	for i, name := range modeNames {
		if name == string(b) {
			*m = NavigationMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown navigation mode %q", string(b))
}
