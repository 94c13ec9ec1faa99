package server

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/floats"

	"backprop-forge/internal/dataset"
	"backprop-forge/internal/network"
)

const maxUploadBytes = 16 << 20

// Detector is the read side of a trained network.
type Detector interface {
	Forward(img *image.Gray) ([]float64, error)
	ImageSize() (width, height int)
	LayerSizes() (in, hidden, out int)
	Epoch() int
}

// DetectResponse is returned by POST /detect.
type DetectResponse struct {
	Class   int       `json:"class"`
	Signals []float64 `json:"signals"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Input  int `json:"input"`
	Hidden int `json:"hidden"`
	Output int `json:"output"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Epoch  int `json:"epoch"`
}

// HTTPServer serves detections from a single network.
type HTTPServer struct {
	Router *gin.Engine
	Addr   string

	// mu serialises Forward, which writes link signals.
	mu  sync.Mutex
	det Detector
	srv *http.Server
}

// NewHTTPServer registers the detection routes for det.
func NewHTTPServer(addr string, det Detector) *HTTPServer {
	hs := &HTTPServer{
		Router: gin.Default(),
		Addr:   addr,
		det:    det,
	}
	hs.Router.GET("/status", hs.handleStatus)
	hs.Router.POST("/detect", hs.handleDetect)
	hs.srv = &http.Server{Addr: addr, Handler: hs.Router}
	return hs
}

// Start listens until Stop is called.
func (hs *HTTPServer) Start() error {
	log.Printf("detect server listening on %s", hs.Addr)
	if err := hs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (hs *HTTPServer) Stop(ctx context.Context) error {
	return hs.srv.Shutdown(ctx)
}

func (hs *HTTPServer) handleStatus(c *gin.Context) {
	hs.mu.Lock()
	in, hidden, out := hs.det.LayerSizes()
	w, h := hs.det.ImageSize()
	epoch := hs.det.Epoch()
	hs.mu.Unlock()
	c.JSON(http.StatusOK, StatusResponse{Input: in, Hidden: hidden, Output: out, Width: w, Height: h, Epoch: epoch})
}

func (hs *HTTPServer) handleDetect(c *gin.Context) {
	body, err := readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer body.Close()

	w, h := hs.det.ImageSize()
	img, err := dataset.DecodeGray(io.LimitReader(body, maxUploadBytes), w, h)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hs.mu.Lock()
	signals, err := hs.det.Forward(img)
	hs.mu.Unlock()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, network.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, DetectResponse{Class: floats.MaxIdx(signals), Signals: signals})
}

// readImage accepts either a multipart "image" field or a raw request body.
func readImage(c *gin.Context) (io.ReadCloser, error) {
	if fh, err := c.FormFile("image"); err == nil {
		return fh.Open()
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, errors.New("request has no image")
	}
	return c.Request.Body, nil
}
