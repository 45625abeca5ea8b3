package agent

// Policy constants. Their exact values are part of the observable
// behaviour of the agent.
const (
	GPSSensor            = "GPS"
	GPSVarianceThreshold = 5.0
	MagNavAltitude       = 50.0 // m, fly low for a stronger anomaly signal

	CruiseSpeedFraction = 0.8
	AcceptanceRadius    = 100.0 // m
	LoopMission         = true
)

// GPSStatusFor is the monitoring rule: strictly above the threshold means
// degraded.
func GPSStatusFor(variance float64) SensorStatus {
	if variance > GPSVarianceThreshold {
		return Degraded
	}
	return Operational
}

type modeInput struct {
	from     NavigationMode
	degraded bool
}

// modeTable is the whole mode state machine. There is no hysteresis: the
// next mode depends only on this cycle's GPS status. DEAD_RECKONING is a
// valid mode to be in but nothing transitions into it.
var modeTable = map[modeInput]NavigationMode{
	{ModeGPS, false}:           ModeGPS,
	{ModeGPS, true}:            ModeMagNav,
	{ModeMagNav, false}:        ModeGPS,
	{ModeMagNav, true}:         ModeMagNav,
	{ModeDeadReckoning, false}: ModeGPS,
	{ModeDeadReckoning, true}:  ModeMagNav,
}

// NextMode returns the mode to fly given the current mode and the GPS
// status reported this cycle.
func NextMode(current NavigationMode, gps SensorStatus) NavigationMode {
	degraded := gps == Degraded
	if next, ok := modeTable[modeInput{current, degraded}]; ok {
		return next
	}
	if degraded {
		return ModeMagNav
	}
	return ModeGPS
}
