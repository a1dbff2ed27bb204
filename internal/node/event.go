// internal/node/event.go
package node

// Input ids the node understands, and the id it publishes on.
const (
	InputGoalPosition        = "goal_position"
	InputPullPresentPosition = "pull_present_position"
	OutputPresentPosition    = "present_position"
)

// Event is one message from the dataflow runtime.
// The set is closed: Input, Stop, or Unknown.
type Event interface {
	isEvent()
}

// Input carries data on a named input.
type Input struct {
	ID   string
	Data []byte
}

// Stop asks the node to exit.
type Stop struct{}

// Unknown is any other runtime event. Logged and ignored.
type Unknown struct {
	Type string
}

func (Input) isEvent()   {}
func (Stop) isEvent()    {}
func (Unknown) isEvent() {}

// Action tells the loop what to do after an event.
type Action int

const (
	Continue Action = iota
	Exit
)

// Handler consumes events one at a time.
type Handler interface {
	HandleEvent(ev Event) Action
}

// StatusRecord is the column-oriented present_position record:
// one row per motor, registry order.
type StatusRecord struct {
	JointName []string  `cbor:"joint_name"`
	Value     []float64 `cbor:"value"`
}
