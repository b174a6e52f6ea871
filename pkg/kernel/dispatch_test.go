package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/wire"
)

func TestDispatchQueueCommands(t *testing.T) {
	m := newFakeModule(5, 2)
	kt := newKernelTest(t, 0, m)
	kt.k.Setup()
	kt.out.take(t)

	// the requested ack precedes any effect of the command
	kt.dispatch(&wire.OneOffModuleCommand{ModuleType: 5, ModuleID: 2, ReturnCode: 7, Command: 3})
	require.Equal(t, []wire.Message{&wire.ReceptionCode{Code: 7}}, kt.out.take(t))
	require.True(t, m.core.ResolveActiveCommand())
	require.Equal(t, byte(3), m.core.ActiveCommand())
	m.core.CompleteCommand()
	kt.out.take(t)

	// zero return code asks for no ack
	kt.dispatch(&wire.RepeatedModuleCommand{ModuleType: 5, ModuleID: 2, Command: 4, CycleDelay: 1000})
	require.Empty(t, kt.out.take(t))
	require.True(t, m.core.ResolveActiveCommand())
	m.core.CompleteCommand()
	kt.out.take(t)

	// a dequeue kills the recurrence before it re-arms
	kt.dispatch(&wire.DequeueModuleCommand{ModuleType: 5, ModuleID: 2})
	kt.clk.AdvanceMicros(1001)
	require.False(t, m.core.ResolveActiveCommand())
}

func TestDispatchUnknownTarget(t *testing.T) {
	kt := newKernelTest(t, 0, newFakeModule(5, 2))
	kt.k.Setup()
	kt.out.take(t)

	kt.dispatch(&wire.OneOffModuleCommand{ModuleType: 9, ModuleID: 9, ReturnCode: 5, Command: 1})
	msgs := kt.out.take(t)
	require.Len(t, msgs, 2)
	require.Equal(t, &wire.ReceptionCode{Code: 5}, msgs[0])
	report := msgs[1].(*wire.KernelData)
	require.Equal(t, CommandReceiveData, report.Command)
	require.Equal(t, StatusTargetModuleNotFound, report.Event)
	val, err := report.Value()
	require.NoError(t, err)
	require.Equal(t, [2]uint8{9, 9}, val)
}

func TestDispatchModuleParameters(t *testing.T) {
	m := newFakeModule(5, 2)
	kt := newKernelTest(t, 0, m)
	kt.k.Setup()
	kt.out.take(t)

	kt.dispatch(&wire.ModuleParameters{
		ModuleType: 5, ModuleID: 2, ReturnCode: 9,
		Data: []byte{0x10, 0x27, 5},
	})
	require.Equal(t, tuningParams{Threshold: 10000, Pool: 5}, m.params)
	msgs := kt.out.take(t)
	require.Len(t, msgs, 2)
	require.Equal(t, &wire.ReceptionCode{Code: 9}, msgs[0])
	report := msgs[1].(*wire.KernelData)
	require.Equal(t, StatusModuleParametersSet, report.Event)
	val, err := report.Value()
	require.NoError(t, err)
	require.Equal(t, [2]uint8{5, 2}, val)

	// a failure reports the error and nothing else
	m.paramsErr = errors.New("out of range")
	kt.dispatch(&wire.ModuleParameters{ModuleType: 5, ModuleID: 2, Data: []byte{1, 0, 1}})
	msgs = kt.out.take(t)
	require.Len(t, msgs, 1)
	report = msgs[0].(*wire.KernelData)
	require.Equal(t, StatusModuleParametersError, report.Event)
	val, err = report.Value()
	require.NoError(t, err)
	require.Equal(t, [2]uint8{5, 2}, val)

	// unknown target
	kt.dispatch(&wire.ModuleParameters{ModuleType: 8, ModuleID: 8, Data: []byte{1}})
	msgs = kt.out.take(t)
	require.Len(t, msgs, 1)
	require.Equal(t, StatusTargetModuleNotFound, msgs[0].(*wire.KernelData).Event)
}

func TestDispatchLockParameters(t *testing.T) {
	kt := newKernelTest(t, 0, newFakeModule(5, 2))
	kt.k.Setup()
	kt.out.take(t)

	kt.dispatch(&wire.KernelParameters{ReturnCode: 3, ActionLock: false, TTLLock: true})
	require.False(t, kt.locks.ActionLock)
	require.True(t, kt.locks.TTLLock)
	require.Equal(t, []wire.Message{
		&wire.ReceptionCode{Code: 3},
		&wire.KernelState{Command: CommandReceiveData, Event: StatusModuleParametersSet},
	}, kt.out.take(t))

	// a reset re-engages both gates
	kt.k.Setup()
	require.True(t, kt.locks.ActionLock)
	require.True(t, kt.locks.TTLLock)
}

func TestDispatchKernelCommands(t *testing.T) {
	a, b := newFakeModule(5, 2), newFakeModule(7, 1)
	kt := newKernelTest(t, 0, a, b)
	kt.k.Setup()
	kt.out.take(t)

	kt.dispatch(&wire.KernelCommand{Command: CommandIdentifyController})
	require.Equal(t, []wire.Message{&wire.ControllerIdentification{ID: 42}}, kt.out.take(t))

	kt.dispatch(&wire.KernelCommand{Command: CommandIdentifyModules})
	require.Equal(t, []wire.Message{
		&wire.ModuleIdentification{TypeID: 0x0502},
		&wire.ModuleIdentification{TypeID: 0x0701},
	}, kt.out.take(t))

	kt.dispatch(&wire.KernelCommand{Command: 99})
	require.Equal(t, []wire.Message{
		&wire.KernelState{Command: 99, Event: StatusCommandNotRecognized},
	}, kt.out.take(t))

	kt.dispatch(&wire.KernelCommand{ReturnCode: 1, Command: CommandResetController})
	require.Equal(t, 2, a.setups)
	require.Equal(t, 2, b.setups)
	require.Equal(t, []wire.Message{
		&wire.ReceptionCode{Code: 1},
		&wire.KernelState{Command: CommandResetController, Event: StatusSetupComplete},
	}, kt.out.take(t))
}

func TestDispatchErrors(t *testing.T) {
	kt := newKernelTest(t, 0, newFakeModule(5, 2))
	kt.k.Setup()
	kt.out.take(t)

	// unknown protocol code
	kt.k.command = CommandReceiveData
	kt.k.Dispatch([]byte{200, 1, 2, 3})
	msgs := kt.out.take(t)
	require.Len(t, msgs, 1)
	report := msgs[0].(*wire.KernelData)
	require.Equal(t, StatusInvalidMessageProtocol, report.Event)
	val, err := report.Value()
	require.NoError(t, err)
	require.Equal(t, uint8(200), val)

	// a controller-to-host message looped back at us
	kt.dispatch(&wire.ModuleState{ModuleType: 1, ModuleID: 1, Command: 1, Event: 1})
	msgs = kt.out.take(t)
	require.Len(t, msgs, 1)
	report = msgs[0].(*wire.KernelData)
	require.Equal(t, StatusInvalidMessageProtocol, report.Event)
	val, err = report.Value()
	require.NoError(t, err)
	require.Equal(t, uint8(wire.ProtocolModuleState), val)

	// truncated payload
	kt.k.Dispatch([]byte{byte(wire.ProtocolKernelCommand)})
	msgs = kt.out.take(t)
	require.Len(t, msgs, 1)
	report = msgs[0].(*wire.KernelData)
	require.Equal(t, CommandReceiveData, report.Command)
	require.Equal(t, StatusReceptionError, report.Event)
	val, err = report.Value()
	require.NoError(t, err)
	require.Equal(t, link.StatusParsingError, val.([2]uint8)[0])
	require.True(t, kt.sim.Digital(kt.sim.LED()))
}

func TestNoteFault(t *testing.T) {
	kt := newKernelTest(t, 0, newFakeModule(5, 2))
	kt.k.Setup()
	kt.out.take(t)

	kt.k.command = CommandReceiveData
	kt.k.NoteFault(link.CodecCRCMismatch)
	msgs := kt.out.take(t)
	require.Len(t, msgs, 1)
	report := msgs[0].(*wire.KernelData)
	require.Equal(t, CommandReceiveData, report.Command)
	require.Equal(t, StatusReceptionError, report.Event)
	val, err := report.Value()
	require.NoError(t, err)
	require.Equal(t, [2]uint8{link.StatusReceptionError, link.CodecCRCMismatch}, val)
	require.True(t, kt.sim.Digital(kt.sim.LED()))
}
