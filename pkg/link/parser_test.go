package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type parserTestStep struct {
	in    []byte
	final ParseResult
}

type parserTestStepBuilder struct {
	steps []parserTestStep
}

func parserTestSteps() *parserTestStepBuilder {
	return &parserTestStepBuilder{}
}

// feed appends bytes which must all parse without a result, except
// that the last byte yields whatever payload or fault follows.
func (b *parserTestStepBuilder) feed(in ...byte) *parserTestStepBuilder {
	b.steps = append(b.steps, parserTestStep{in: in})
	return b
}

func (b *parserTestStepBuilder) frame(payload ...byte) *parserTestStepBuilder {
	f, err := EncodeFrame(payload)
	if err != nil {
		panic(err)
	}
	return b.feed(f...).payload(payload...)
}

func (b *parserTestStepBuilder) payload(data ...byte) *parserTestStepBuilder {
	b.steps[len(b.steps)-1].final = ParseResult{Payload: data}
	return b
}

func (b *parserTestStepBuilder) fault(code byte) *parserTestStepBuilder {
	b.steps[len(b.steps)-1].final = ParseResult{Fault: code}
	return b
}

func (b *parserTestStepBuilder) build() []parserTestStep {
	return b.steps
}

func corruptFrame(payload []byte, at int, xor byte) []byte {
	f, err := EncodeFrame(payload)
	if err != nil {
		panic(err)
	}
	f[at] ^= xor
	return f
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name  string
		steps []parserTestStep
	}{
		{
			name: "single frame",
			steps: parserTestSteps().
				frame(4, 0, 2).
				build(),
		},
		{
			name: "frame with zeros in payload",
			steps: parserTestSteps().
				frame(9, 5, 2, 0, 0).
				build(),
		},
		{
			name: "back to back frames",
			steps: parserTestSteps().
				frame(11, 7).
				frame(10, 2, 1).
				build(),
		},
		{
			name: "garbage before frame",
			steps: parserTestSteps().
				feed(0x00, 0x13, 0x7f).
				frame(11, 7).
				build(),
		},
		{
			name: "zero size faults",
			steps: parserTestSteps().
				feed(StartByte, 0x00).fault(CodecSizeMismatch).
				frame(11, 7).
				build(),
		},
		{
			name: "oversized declaration faults",
			steps: parserTestSteps().
				feed(StartByte, 0xff).fault(CodecPayloadTooLarge).
				frame(11, 7).
				build(),
		},
		{
			name: "corrupted crc faults then resyncs",
			steps: parserTestSteps().
				feed(corruptFrame([]byte{4, 0, 2}, 7, 0x55)...).fault(CodecCRCMismatch).
				frame(4, 0, 2).
				build(),
		},
		{
			name: "corrupted block faults on crc",
			steps: parserTestSteps().
				feed(corruptFrame([]byte{4, 0, 2}, 3, 0x55)...).fault(CodecCRCMismatch).
				frame(4, 0, 2).
				build(),
		},
		{
			name: "block overrun faults",
			steps: parserTestSteps().
				feed(StartByte, 0x01, 0x11, 0x22, 0x33).fault(CodecCobsError).
				frame(11, 7).
				build(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var parser Parser
			for i, step := range tc.steps {
				for j, b := range step.in {
					pr := parser.Parse(b)
					if j+1 < len(step.in) {
						require.Equalf(t, ParseResult{}, pr, "step %d byte %d", i, j)
					} else {
						require.Equalf(t, step.final, pr, "step %d byte %d", i, j)
					}
				}
			}
		})
	}
}

func TestParserSplitAcrossChunks(t *testing.T) {
	frame, err := EncodeFrame([]byte{7, 5, 2, 3, 52, 7, 0x9a, 0x02})
	require.NoError(t, err)

	var parser Parser
	var got [][]byte
	for _, b := range frame[:3] {
		require.Equal(t, ParseResult{}, parser.Parse(b))
	}
	require.True(t, parser.Receiving())
	for _, b := range frame[3:] {
		if pr := parser.Parse(b); pr.Payload != nil {
			got = append(got, pr.Payload)
		}
	}
	require.Equal(t, [][]byte{{7, 5, 2, 3, 52, 7, 0x9a, 0x02}}, got)
	require.False(t, parser.Receiving())
}

func TestParserReset(t *testing.T) {
	frame, err := EncodeFrame([]byte{11, 7})
	require.NoError(t, err)

	var parser Parser
	parser.Parse(frame[0])
	parser.Parse(frame[1])
	parser.Reset()
	// the partial frame is dropped, a fresh frame parses fine
	for i, b := range frame {
		pr := parser.Parse(b)
		if i+1 == len(frame) {
			require.Equal(t, []byte{11, 7}, pr.Payload)
		} else {
			require.Equal(t, ParseResult{}, pr)
		}
	}
}

func TestEncodeFrame(t *testing.T) {
	// payload [4 0 2] stuffs to block [2 4 2 2 0]
	frame, err := EncodeFrame([]byte{4, 0, 2})
	require.NoError(t, err)
	require.Equal(t, StartByte, frame[0])
	require.Equal(t, byte(3), frame[1])
	require.Equal(t, []byte{2, 4, 2, 2, 0}, frame[2:7])
	crc := crc16(frame[2:7])
	require.Equal(t, []byte{byte(crc), byte(crc >> 8)}, frame[7:])

	_, err = EncodeFrame(nil)
	require.Error(t, err)
	_, err = EncodeFrame(make([]byte, MaxPayloadSize+1))
	require.Error(t, err)

	max, err := EncodeFrame(make([]byte, MaxPayloadSize))
	require.NoError(t, err)
	var parser Parser
	var got []byte
	for _, b := range max {
		if pr := parser.Parse(b); pr.Payload != nil {
			got = pr.Payload
		}
	}
	require.Equal(t, make([]byte, MaxPayloadSize), got)
}
