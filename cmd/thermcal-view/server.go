// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/render"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// Metadata is sent along each frame.
type Metadata struct {
	Sensor    string    `json:"sensor"`
	File      string    `json:"file"`
	Count     int       `json:"count"`
	Min       string    `json:"min"`
	Max       string    `json:"max"`
	Timestamp time.Time `json:"timestamp"`
}

type entry struct {
	frame *sensor.Frame
	meta  Metadata
}

// WebServer serves the most recent corrected frame.
type WebServer struct {
	log       *zap.Logger
	colorized bool

	cond   sync.Cond
	last   *entry // Most recent frame; slow clients skip the older ones.
	count  int    // Number of frames added so far.
	closed bool
}

func NewWebServer(log *zap.Logger, colorized bool) *WebServer {
	return &WebServer{
		log:       log,
		colorized: colorized,
		cond:      sync.Cond{L: &sync.Mutex{}},
	}
}

// AddFrame publishes f to every client.
func (s *WebServer) AddFrame(f *sensor.Frame, name string) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.count++
	s.last = &entry{
		frame: f,
		meta: Metadata{
			Sensor:    f.Sensor.Name,
			File:      name,
			Count:     s.count,
			Min:       f.Sensor.Unit.Format(f.Min),
			Max:       f.Sensor.Unit.Format(f.Max),
			Timestamp: time.Now().UTC(),
		},
	}
	s.cond.Broadcast()
}

// Close wakes up and terminates every stream.
func (s *WebServer) Close() {
	s.cond.L.Lock()
	s.closed = true
	s.cond.L.Unlock()
	s.cond.Broadcast()
}

// Handler returns the HTTP handler of the server.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/favicon.ico", s.still)
	mux.HandleFunc("/still.png", s.still)
	mux.Handle("/stream", websocket.Handler(s.stream))
	return loggingHandler{handler: mux, log: s.log}
}

func (s *WebServer) latest() *entry {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	return s.last
}

func (s *WebServer) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(rootHTML)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) still(w http.ResponseWriter, r *http.Request) {
	e := s.latest()
	if e == nil {
		http.Error(w, "No frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := render.EncodePNG(w, e.frame, s.colorized); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// stream sends every new frame as a PNG WebSocket frame followed by its
// metadata.
func (s *WebServer) stream(w *websocket.Conn) {
	s.log.Info("websocket", zap.String("remote", w.Request().RemoteAddr))
	defer w.Close()
	sent := 0
	buf := &bytes.Buffer{}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	for !s.closed {
		if sent == s.count {
			s.cond.Wait()
			continue
		}
		e := s.last
		sent = s.count
		s.cond.L.Unlock()
		// Do the actual I/O without the lock.
		err := s.send(w, buf, e)
		s.cond.L.Lock()
		if err != nil {
			s.log.Info("websocket", zap.Error(err))
			return
		}
	}
}

func (s *WebServer) send(w *websocket.Conn, buf *bytes.Buffer, e *entry) error {
	// Frame I is for Image.
	buf.Reset()
	buf.WriteString("I")
	encoder := base64.NewEncoder(base64.StdEncoding, buf)
	if err := render.EncodePNG(encoder, e.frame, s.colorized); err != nil {
		return err
	}
	encoder.Close()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	// Frame M is for Metadata.
	buf.Reset()
	buf.WriteString("M")
	if err := json.NewEncoder(buf).Encode(&e.meta); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

const rootHTML = `<!DOCTYPE html>
<html>
<head>
<title>thermcal</title>
<style>
img.large {
	width: 640px;
	height: auto;
	image-rendering: pixelated;
}
</style>
</head>
<body>
<img class="large" id="frame" src="/still.png"><br>
<span id="meta"></span>
<script>
var ws = new WebSocket("ws://" + location.host + "/stream");
ws.onmessage = function(e) {
	if (e.data[0] == "I") {
		document.getElementById("frame").src = "data:image/png;base64," + e.data.substr(1);
	} else if (e.data[0] == "M") {
		var m = JSON.parse(e.data.substr(1));
		document.getElementById("meta").textContent = m.sensor + " #" + m.count + " " + m.file + ": " + m.min + " - " + m.max;
	}
};
</script>
</body>
</html>
`

// Private details.

type loggingHandler struct {
	handler http.Handler
	log     *zap.Logger
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

func (l *loggingResponseWriter) Write(data []byte) (size int, err error) {
	size, err = l.ResponseWriter.Write(data)
	l.length += size
	return
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for websocket.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h := l.ResponseWriter.(http.Hijacker)
	return h.Hijack()
}

// ServeHTTP logs each HTTP request at debug level.
func (l loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lrw := &loggingResponseWriter{ResponseWriter: w}
	l.handler.ServeHTTP(lrw, r)
	l.log.Debug("http",
		zap.String("remote", r.RemoteAddr),
		zap.Int("status", lrw.status),
		zap.Int("bytes", lrw.length),
		zap.String("method", r.Method),
		zap.String("uri", r.RequestURI))
}
