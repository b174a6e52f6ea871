package sensor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/module"
	"github.com/robotalks/mcu.go/pkg/wire"
)

type captureWriter struct {
	frames [][]byte
}

func (w *captureWriter) WritePacket(pkt []byte) error {
	w.frames = append(w.frames, append([]byte(nil), pkt...))
	return nil
}

func (w *captureWriter) take(t *testing.T) []wire.Message {
	var msgs []wire.Message
	var parser link.Parser
	for _, frame := range w.frames {
		for _, b := range frame {
			pr := parser.Parse(b)
			require.Zero(t, pr.Fault)
			if pr.Payload != nil {
				msg, err := wire.Decode(pr.Payload)
				require.NoError(t, err)
				msgs = append(msgs, msg)
			}
		}
	}
	w.frames = nil
	return msgs
}

type sensorTest struct {
	m    *Module
	out  *captureWriter
	port *link.Port
	sim  *board.Sim
	clk  *board.SimClock
}

func newSensorTest(t *testing.T) *sensorTest {
	st := &sensorTest{
		out: &captureWriter{},
		sim: board.NewSim(),
		clk: &board.SimClock{},
	}
	st.port = link.NewPort(st.out).WithBoard(st.sim)
	core := module.NewCore(2, 1, st.port, st.sim, st.clk, module.NewLocks())
	m, err := New(core, 7)
	require.NoError(t, err)
	require.NoError(t, m.Setup())
	st.m = m
	return st
}

// run executes one blocking CheckState and returns its reports.
func (st *sensorTest) run(t *testing.T) []wire.Message {
	core := st.m.Core()
	core.Queue(CommandCheckState, false)
	require.True(t, core.ResolveActiveCommand())
	require.True(t, st.m.RunCommand())
	return st.out.take(t)
}

// reading is the expected report for one filtered readout.
func reading(v uint16) *wire.ModuleData {
	return &wire.ModuleData{
		ModuleType: 2, ModuleID: 1, Command: CommandCheckState, Event: EventInput,
		Prototype: wire.PrototypeOneUint16, Object: []byte{byte(v), byte(v >> 8)},
	}
}

func TestSensorNew(t *testing.T) {
	sim := board.NewSim()
	core := module.NewCore(2, 1, link.NewPort(&captureWriter{}).WithBoard(sim), sim, &board.SimClock{}, module.NewLocks())

	_, err := New(core, sim.LED())
	require.Error(t, err)

	m, err := New(core, 7)
	require.NoError(t, err)
	require.Equal(t, core, m.Core())
}

func TestSensorSetup(t *testing.T) {
	st := newSensorTest(t)
	require.Equal(t, board.ModeInput, st.sim.Mode(7))
	require.Equal(t, Params{
		LowerThreshold:  0,
		UpperThreshold:  65535,
		DeltaThreshold:  1,
		AveragePoolSize: 10,
	}, st.m.params)
	require.Equal(t, readoutSentinel, st.m.previous)
}

func TestSensorCheckState(t *testing.T) {
	st := newSensorTest(t)
	st.m.params = Params{
		LowerThreshold:  100,
		UpperThreshold:  1000,
		DeltaThreshold:  10,
		AveragePoolSize: 1,
	}
	st.sim.FeedAnalog(7, 500, 500, 505, 510, 50, 520)

	// anything in band beats the invalid tracker
	msgs := st.run(t)
	require.Len(t, msgs, 2)
	require.Equal(t, reading(500), msgs[0])

	// unchanged readout stays silent
	msgs = st.run(t)
	require.Len(t, msgs, 1)

	// below the delta threshold nothing reports and the tracker
	// keeps the last reported value
	msgs = st.run(t)
	require.Len(t, msgs, 1)
	msgs = st.run(t)
	require.Len(t, msgs, 2)
	require.Equal(t, reading(510), msgs[0])

	// out of band stays silent however large the change
	msgs = st.run(t)
	require.Len(t, msgs, 1)

	// delta keeps measuring against the last reported value
	msgs = st.run(t)
	require.Len(t, msgs, 2)
	require.Equal(t, reading(520), msgs[0])
}

func TestSensorPooling(t *testing.T) {
	st := newSensorTest(t)
	st.m.params.AveragePoolSize = 4
	st.sim.FeedAnalog(7, 10, 11, 12, 13)

	msgs := st.run(t)
	require.Len(t, msgs, 2)
	// half-up average of the four samples
	require.Equal(t, reading(12), msgs[0])
}

func TestSensorSetupRearmsTracker(t *testing.T) {
	st := newSensorTest(t)
	st.m.params.AveragePoolSize = 1
	st.sim.FeedAnalog(7, 65535, 400, 400)

	// a sentinel-valued readout matches the fresh tracker, silent
	msgs := st.run(t)
	require.Len(t, msgs, 1)
	msgs = st.run(t)
	require.Len(t, msgs, 2)
	require.Equal(t, reading(400), msgs[0])
	msgs = st.run(t)
	require.Len(t, msgs, 1)

	// re-setup invalidates the tracker, the same readout reports
	// again
	require.NoError(t, st.m.Setup())
	st.m.params.AveragePoolSize = 1
	msgs = st.run(t)
	require.Len(t, msgs, 2)
	require.Equal(t, reading(400), msgs[0])
}

func TestSensorRecurrentPoll(t *testing.T) {
	st := newSensorTest(t)
	st.m.params.AveragePoolSize = 1
	st.sim.FeedAnalog(7, 500, 500, 700)

	core := st.m.Core()
	core.QueueRecurrent(CommandCheckState, true, 0)
	for i := 0; i < 3; i++ {
		require.True(t, core.ResolveActiveCommand())
		require.True(t, st.m.RunCommand())
		st.clk.AdvanceMicros(1)
	}

	// recurrent polls report readings only, completions stay silent
	msgs := st.out.take(t)
	require.Len(t, msgs, 2)
	require.Equal(t, reading(500), msgs[0])
	require.Equal(t, reading(700), msgs[1])
}

func TestSensorSetParameters(t *testing.T) {
	st := newSensorTest(t)

	_, err := st.port.Decode((&wire.ModuleParameters{
		ModuleType: 2, ModuleID: 1,
		Data: []byte{100, 0, 232, 3, 10, 0, 2},
	}).Bytes())
	require.NoError(t, err)
	require.NoError(t, st.m.SetParameters())
	require.Equal(t, Params{
		LowerThreshold:  100,
		UpperThreshold:  1000,
		DeltaThreshold:  10,
		AveragePoolSize: 2,
	}, st.m.params)
}

func TestSensorUnknownCommand(t *testing.T) {
	st := newSensorTest(t)
	core := st.m.Core()
	core.Queue(9, false)
	require.True(t, core.ResolveActiveCommand())
	require.False(t, st.m.RunCommand())
}
