package nav

// Hold keeps the vehicle on its current heading and altitude at a fixed
// speed. It never changes state.
type Hold struct {
	Speed float64
}

var _ Navigator = Hold{}

func (h Hold) ProduceCommand(st State) Command {
	return Command{Speed: h.Speed, Heading: st.Psi, Altitude: st.Z}
}
