package keyhist

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Binary protocol spoken on /ws. Every message is an 8 byte envelope
// followed by the payload. All integers and floats are little endian.
//
//	byte 0     version
//	byte 1-2   reserved
//	byte 3     message type
//	byte 4-7   payload length (uint32)
const (
	ProtocolVersion byte = 1

	MessageTypeHistogram byte = 0x01
	MessageTypeMetadata  byte = 0x02
	MessageTypeStreamEnd byte = 0x03

	EnvelopeHeaderSize = 8

	histogramHeaderSize = 8
)

type EnvelopeHeader struct {
	Version  byte
	Reserved [2]byte
	Type     byte
	Length   uint32
}

// The bins of one panel. Edges has one more entry than Counts.
type HistogramMessage struct {
	Panel  uint32
	Edges  []float64
	Counts []float64
}

type StreamEndMessage struct {
	Error bool
	Msg   string
}

type WSMessage struct {
	Header  EnvelopeHeader
	Payload interface{} // HistogramMessage, Metadata or StreamEndMessage
}

func NewHistogramMessage(panel int, bins []Bin) HistogramMessage {
	msg := HistogramMessage{
		Panel:  uint32(panel),
		Edges:  make([]float64, 0, len(bins)+1),
		Counts: make([]float64, 0, len(bins)),
	}

	for i, b := range bins {
		if i == 0 {
			msg.Edges = append(msg.Edges, b.Min)
		}
		msg.Edges = append(msg.Edges, b.Max)
		msg.Counts = append(msg.Counts, b.Count)
	}

	return msg
}

func (m HistogramMessage) Bins() []Bin {
	bins := make([]Bin, len(m.Counts))
	for i := range m.Counts {
		bins[i] = Bin{Min: m.Edges[i], Max: m.Edges[i+1], Count: m.Counts[i]}
	}
	return bins
}

func EncodeEnvelopeHeader(env EnvelopeHeader) []byte {
	buf := make([]byte, EnvelopeHeaderSize)
	buf[0] = env.Version
	copy(buf[1:3], env.Reserved[:])
	buf[3] = env.Type
	binary.LittleEndian.PutUint32(buf[4:], env.Length)
	return buf
}

func DecodeEnvelopeHeader(buf []byte) (EnvelopeHeader, error) {
	if len(buf) < EnvelopeHeaderSize {
		return EnvelopeHeader{}, fmt.Errorf("envelope needs %d bytes, got %d", EnvelopeHeaderSize, len(buf))
	}

	env := EnvelopeHeader{
		Version: buf[0],
		Type:    buf[3],
		Length:  binary.LittleEndian.Uint32(buf[4:]),
	}
	copy(env.Reserved[:], buf[1:3])

	return env, nil
}

func EncodeHistogramMessage(msg HistogramMessage) ([]byte, error) {
	empty := len(msg.Counts) == 0 && len(msg.Edges) == 0
	if !empty && len(msg.Edges) != len(msg.Counts)+1 {
		return nil, fmt.Errorf("histogram with %d counts needs %d edges, got %d", len(msg.Counts), len(msg.Counts)+1, len(msg.Edges))
	}

	buf := bytes.NewBuffer(make([]byte, 0, histogramPayloadSize(len(msg.Counts), len(msg.Edges))))
	binary.Write(buf, binary.LittleEndian, msg.Panel)
	binary.Write(buf, binary.LittleEndian, uint32(len(msg.Counts)))
	binary.Write(buf, binary.LittleEndian, msg.Edges)
	binary.Write(buf, binary.LittleEndian, msg.Counts)

	return buf.Bytes(), nil
}

func histogramPayloadSize(numCounts, numEdges int) int {
	return histogramHeaderSize + 8*(numCounts+numEdges)
}

func DecodeHistogramMessage(buf []byte) (HistogramMessage, error) {
	if len(buf) < histogramHeaderSize {
		return HistogramMessage{}, fmt.Errorf("histogram message needs at least %d bytes, got %d", histogramHeaderSize, len(buf))
	}

	msg := HistogramMessage{
		Panel: binary.LittleEndian.Uint32(buf[0:4]),
	}
	numCounts := int(binary.LittleEndian.Uint32(buf[4:8]))

	numEdges := numCounts + 1
	if numCounts == 0 {
		numEdges = 0
	}

	if expected := histogramPayloadSize(numCounts, numEdges); len(buf) != expected {
		return HistogramMessage{}, fmt.Errorf("histogram message with %d bins should be %d bytes, got %d", numCounts, expected, len(buf))
	}

	msg.Edges = make([]float64, numEdges)
	msg.Counts = make([]float64, numCounts)

	r := bytes.NewReader(buf[histogramHeaderSize:])
	if err := binary.Read(r, binary.LittleEndian, msg.Edges); err != nil {
		return HistogramMessage{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, msg.Counts); err != nil {
		return HistogramMessage{}, err
	}

	return msg, nil
}

// METADATA and STREAM_END carry a length prefixed JSON document.
func encodeJSONPayload(v interface{}) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 4+len(doc))
	binary.LittleEndian.PutUint32(buf, uint32(len(doc)))
	copy(buf[4:], doc)
	return buf, nil
}

func decodeJSONPayload(buf []byte, v interface{}) error {
	if len(buf) < 4 {
		return fmt.Errorf("JSON payload needs at least 4 bytes, got %d", len(buf))
	}

	docLength := binary.LittleEndian.Uint32(buf)
	if uint64(len(buf)) != 4+uint64(docLength) {
		return fmt.Errorf("JSON payload declares %d bytes, got %d", docLength, len(buf)-4)
	}

	return json.Unmarshal(buf[4:], v)
}

func EncodeWSMessage(msg WSMessage) ([]byte, error) {
	var payload []byte
	var err error

	switch msg.Header.Type {
	case MessageTypeHistogram:
		hist, ok := msg.Payload.(HistogramMessage)
		if !ok {
			return nil, fmt.Errorf("message type 0x%02x wants HistogramMessage, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeHistogramMessage(hist)
	case MessageTypeMetadata:
		metadata, ok := msg.Payload.(Metadata)
		if !ok {
			return nil, fmt.Errorf("message type 0x%02x wants Metadata, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = encodeJSONPayload(metadata)
	case MessageTypeStreamEnd:
		end, ok := msg.Payload.(StreamEndMessage)
		if !ok {
			return nil, fmt.Errorf("message type 0x%02x wants StreamEndMessage, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = encodeJSONPayload(end)
	default:
		return nil, fmt.Errorf("unknown message type: 0x%02x", msg.Header.Type)
	}
	if err != nil {
		return nil, err
	}

	msg.Header.Length = uint32(len(payload))
	return append(EncodeEnvelopeHeader(msg.Header), payload...), nil
}

func DecodeWSMessage(buf []byte) (WSMessage, error) {
	env, err := DecodeEnvelopeHeader(buf)
	if err != nil {
		return WSMessage{}, err
	}

	end := EnvelopeHeaderSize + uint64(env.Length)
	if uint64(len(buf)) < end {
		return WSMessage{}, fmt.Errorf("message declares %d payload bytes, got %d: %w", env.Length, len(buf)-EnvelopeHeaderSize, io.ErrUnexpectedEOF)
	}
	payload := buf[EnvelopeHeaderSize:end]

	msg := WSMessage{Header: env}
	switch env.Type {
	case MessageTypeHistogram:
		msg.Payload, err = DecodeHistogramMessage(payload)
	case MessageTypeMetadata:
		var metadata Metadata
		err = decodeJSONPayload(payload, &metadata)
		msg.Payload = metadata
	case MessageTypeStreamEnd:
		var streamEnd StreamEndMessage
		err = decodeJSONPayload(payload, &streamEnd)
		msg.Payload = streamEnd
	default:
		return WSMessage{}, fmt.Errorf("unknown message type: 0x%02x", env.Type)
	}
	if err != nil {
		return WSMessage{}, err
	}

	return msg, nil
}
