package keyhist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// Serves a rendered figure to the browser. The figure is rendered once when
// the server is created, so handlers only ever read immutable data.
type HttpServer struct {
	host     string
	port     uint16
	metadata Metadata
	figure   []byte
	mux      *http.ServeMux
	logger   logrus.FieldLogger
}

func NewHttpServer(figure *Figure, host string, port uint16) (*HttpServer, error) {
	png, err := figure.PNG()
	if err != nil {
		return nil, fmt.Errorf("rendering figure: %w", err)
	}

	s := &HttpServer{
		host:     host,
		port:     port,
		metadata: figure.Metadata(),
		figure:   png,
		mux:      http.NewServeMux(),
		logger:   logrus.WithField("tag", "HttpServer"),
	}

	subFS, err := fs.Sub(webuiFiles, "webui")
	if err != nil {
		panic(err)
	}

	s.mux.Handle("/", http.FileServer(http.FS(subFS)))
	s.mux.HandleFunc("/figure.png", s.handleFigure)
	s.mux.HandleFunc("/metadata", s.handleMetadata)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	return s, nil
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Allow-Methods", "*")
}

func (s *HttpServer) handleFigure(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.figure)))
	w.Write(s.figure)
}

func (s *HttpServer) handleMetadata(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(s.metadata)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode metadata")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}

// Sends METADATA, one HISTOGRAM per used panel and STREAM_END, then closes.
func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	ctx := c.CloseRead(req.Context()) // We only write.

	messages := make([]WSMessage, 0, len(s.metadata.Panels)+2)
	messages = append(messages, WSMessage{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: MessageTypeMetadata},
		Payload: s.metadata,
	})
	for _, panel := range s.metadata.Panels {
		messages = append(messages, WSMessage{
			Header:  EnvelopeHeader{Version: ProtocolVersion, Type: MessageTypeHistogram},
			Payload: NewHistogramMessage(panel.Index, panel.Bins),
		})
	}
	messages = append(messages, WSMessage{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: MessageTypeStreamEnd},
		Payload: StreamEndMessage{Msg: fmt.Sprintf("%d histograms sent", len(s.metadata.Panels))},
	})

	for _, msg := range messages {
		buf, err := EncodeWSMessage(msg)
		if err != nil {
			s.logger.WithError(err).Error("failed to encode websocket message")
			c.Close(websocket.StatusInternalError, "encoding failed")
			return
		}

		if err := c.Write(ctx, websocket.MessageBinary, buf); err != nil {
			s.logger.WithError(err).Warn("websocket write failed and closed")
			return
		}
	}

	c.Close(websocket.StatusNormalClosure, "")
}

func (s *HttpServer) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(int(s.port)))
}

// Serves until ctx is cancelled. If openBrowserWindow is set the default
// browser is pointed at the figure once the listener is up.
func (s *HttpServer) Run(ctx context.Context, openBrowserWindow bool) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s", listener.Addr())
	s.logger.Infof("serving figure at %s, press Ctrl+C to exit", url)

	if openBrowserWindow {
		if err := openBrowser(url); err != nil {
			s.logger.WithField("url", url).WithError(err).Warn("failed to start web browser automatically")
		}
	}

	server := &http.Server{Handler: s.mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
