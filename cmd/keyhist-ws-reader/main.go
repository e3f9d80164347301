package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/cactusdynamics/keyhist"
	flags "github.com/jessevdk/go-flags"
	"nhooyr.io/websocket"
)

// Config holds the configuration for the WS reader
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    *slog.Logger
}

// WSReader reads the histograms from a running keyhist display and writes
// them out as CSV.
type WSReader struct {
	config    Config
	csvWriter *csv.Writer

	// panel index -> detector label, filled from the METADATA message
	labels map[uint32]string
}

func NewWSReader(config Config) *WSReader {
	return &WSReader{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
		labels:    make(map[uint32]string),
	}
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	return u.String(), nil
}

// Connect reads messages until the server ends the stream.
func (w *WSReader) Connect(ctx context.Context) error {
	wsURL, err := websocketURL(w.config.ServerURL)
	if err != nil {
		return err
	}

	w.config.Logger.Info("Connecting to websocket", "url", wsURL)

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := w.csvWriter.Write([]string{"panel", "label", "bin_min", "bin_max", "count"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for {
		_, messageData, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.Info("Connection closed normally")
				break
			}
			w.config.Logger.Error("Error reading message", "error", err)
			break
		}

		if err := w.processMessage(messageData); err != nil {
			if err == io.EOF {
				w.config.Logger.Info("Stream ended")
				break
			}
			w.config.Logger.Error("Error processing message", "error", err)
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

func (w *WSReader) processMessage(messageData []byte) error {
	msg, err := keyhist.DecodeWSMessage(messageData)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch payload := msg.Payload.(type) {
	case keyhist.Metadata:
		for _, panel := range payload.Panels {
			w.labels[uint32(panel.Index)] = panel.Label
		}
		w.config.Logger.Debug("Received metadata", "rows", payload.Rows, "cols", payload.Cols, "panels", len(payload.Panels))

	case keyhist.HistogramMessage:
		return w.processHistogram(payload)

	case keyhist.StreamEndMessage:
		if payload.Error {
			w.config.Logger.Error("Stream ended with error", "message", payload.Msg)
		} else {
			w.config.Logger.Info("Stream ended successfully", "message", payload.Msg)
		}
		return io.EOF

	default:
		w.config.Logger.Warn("Unknown message type", "type", fmt.Sprintf("0x%02x", msg.Header.Type))
	}

	return nil
}

func (w *WSReader) processHistogram(hist keyhist.HistogramMessage) error {
	panel := strconv.FormatUint(uint64(hist.Panel), 10)
	label := w.labels[hist.Panel]

	for _, bin := range hist.Bins() {
		row := []string{
			panel,
			label,
			strconv.FormatFloat(bin.Min, 'g', -1, 64),
			strconv.FormatFloat(bin.Max, 'g', -1, 64),
			strconv.FormatFloat(bin.Count, 'g', -1, 64),
		}
		if err := w.csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

type options struct {
	URL     string `long:"url" default:"http://localhost:5274" description:"URL of the keyhist display"`
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	config := Config{
		ServerURL: opts.URL,
		Output:    os.Stdout,
		Logger:    logger,
	}

	reader := NewWSReader(config)
	if err := reader.Connect(context.Background()); err != nil {
		config.Logger.Error("Failed to read histograms", "error", err)
		os.Exit(1)
	}
}
