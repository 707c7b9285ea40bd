package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/preset"
	"github.com/MeKo-Tech/imageadjust/internal/session"
	"github.com/MeKo-Tech/imageadjust/internal/stats"
	"github.com/gin-gonic/gin"
)

var errSessionNotFound = errors.New("session not found")

type sessionInfo struct {
	ID       string    `json:"id"`
	Format   string    `json:"format"`
	Created  time.Time `json:"created"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Channels int       `json:"channels"`
}

type adjustRequest struct {
	Contrast       *float64 `json:"contrast"`
	ContrastAmount *float64 `json:"contrastAmount"`
	Brightness     int      `json:"brightness"`
}

type matchRequest struct {
	Targets []match.Target `json:"targets" binding:"required"`
	Linked  bool           `json:"linked"`
}

type histogramResponse struct {
	Channel pixbuf.Channel  `json:"channel"`
	Bins    stats.Histogram `json:"bins"`
	Count   int             `json:"count"`
	Mean    float64         `json:"mean"`
	StdDev  float64         `json:"stdDev"`
	Min     int             `json:"min"`
	Max     int             `json:"max"`
	Peak    int             `json:"peak"`
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrDegenerateStatistics):
		return http.StatusUnprocessableEntity
	case errors.Is(err, adjust.ErrOutOfRangeParameter),
		errors.Is(err, adjust.ErrChannelMismatch),
		errors.Is(err, match.ErrTargetCount),
		errors.Is(err, pixbuf.ErrInvalidGeometry),
		errors.Is(err, imageio.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, errSessionNotFound), errors.Is(err, preset.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log().Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func (s *Server) entry(c *gin.Context) (*entry, bool) {
	id := c.Param("id")
	e, ok := s.lookup(id)
	if !ok {
		s.fail(c, fmt.Errorf("%w: %s", errSessionNotFound, id))
		return nil, false
	}
	return e, true
}

// run executes one adjustment under the concurrency limit and answers with
// the resulting summary.
func (s *Server) run(c *gin.Context, fn func() (*pixbuf.Buffer, error)) {
	e, ok := s.entry(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.AdjustTimeout)
	defer cancel()

	release, err := s.acquire(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, err = fn()
	release()

	s.totalAdjustments.Add(1)
	if err != nil {
		s.totalFailed.Add(1)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e.session.Stats())
}

func (s *Server) createSession(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"image\" is required"})
		return
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	buf, format, err := imageio.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// results are written back in the upload format when it can be encoded
	if format, err = imageio.NormalizeFormat(format); err != nil {
		format = "png"
	}

	sess := session.New(buf, nil)
	id := s.add(sess, format)
	s.log().Info("session created", "id", id, "width", buf.Width(), "height", buf.Height(), "format", format)

	e, _ := s.lookup(id)
	c.JSON(http.StatusCreated, info(id, e))
}

func info(id string, e *entry) sessionInfo {
	cur := e.session.Current()
	return sessionInfo{
		ID:       id,
		Format:   e.format,
		Created:  e.created,
		Width:    cur.Width(),
		Height:   cur.Height(),
		Channels: cur.Channels(),
	}
}

func (s *Server) getSession(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, info(c.Param("id"), e))
}

func (s *Server) deleteSession(c *gin.Context) {
	if !s.remove(c.Param("id")) {
		s.fail(c, fmt.Errorf("%w: %s", errSessionNotFound, c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) postAdjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contrast := 1.0
	switch {
	case req.Contrast != nil && req.ContrastAmount != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "contrast and contrastAmount are mutually exclusive"})
		return
	case req.Contrast != nil:
		contrast = *req.Contrast
	case req.ContrastAmount != nil:
		contrast = adjust.ContrastCorrectionFactor(*req.ContrastAmount)
	}

	e, ok := s.entry(c)
	if !ok {
		return
	}
	s.run(c, func() (*pixbuf.Buffer, error) {
		return e.session.Adjust(req.Brightness, contrast)
	})
}

func (s *Server) postMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, ok := s.entry(c)
	if !ok {
		return
	}
	s.run(c, func() (*pixbuf.Buffer, error) {
		return e.session.Match(req.Targets, req.Linked)
	})
}

func (s *Server) postGrayscale(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}
	s.run(c, e.session.Grayscale)
}

func (s *Server) postReset(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}
	s.run(c, func() (*pixbuf.Buffer, error) {
		return e.session.Reset(), nil
	})
}

func (s *Server) postClone(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}
	id := s.add(e.session.Clone(nil), e.format)
	clone, _ := s.lookup(id)
	c.JSON(http.StatusCreated, info(id, clone))
}

func (s *Server) postPreset(c *gin.Context) {
	if s.cfg.Presets == nil {
		s.fail(c, fmt.Errorf("%w: no preset store configured", preset.ErrNotFound))
		return
	}
	p, err := s.cfg.Presets.Get(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}

	e, ok := s.entry(c)
	if !ok {
		return
	}
	s.run(c, func() (*pixbuf.Buffer, error) {
		switch p.Kind {
		case preset.KindMatch:
			return e.session.Match(p.Targets, p.Linked)
		default:
			return e.session.Adjust(p.Brightness, p.Contrast)
		}
	})
}

func (s *Server) listPresets(c *gin.Context) {
	if s.cfg.Presets == nil {
		c.JSON(http.StatusOK, []preset.Preset{})
		return
	}
	list, err := s.cfg.Presets.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []preset.Preset{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getStats(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, e.session.Stats())
}

func (s *Server) getHistogram(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}
	cur := e.session.Current()

	ch := cur.ChannelList()[0]
	if name := c.Query("channel"); name != "" {
		var err error
		if ch, err = pixbuf.ParseChannel(name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	h, err := stats.ComputeHistogram(cur, ch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	peak, _ := h.Peak()
	c.JSON(http.StatusOK, histogramResponse{
		Channel: ch,
		Bins:    h,
		Count:   h.Count(),
		Mean:    h.Mean(),
		StdDev:  h.StdDev(),
		Min:     h.Min(),
		Max:     h.Max(),
		Peak:    peak,
	})
}

func (s *Server) getImage(c *gin.Context) {
	e, ok := s.entry(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", e.format)
	format, err := imageio.NormalizeFormat(format)
	if err != nil {
		s.fail(c, err)
		return
	}

	maxSide := s.cfg.ThumbnailSide
	if v := c.Query("max"); v != "" {
		if maxSide, err = strconv.Atoi(v); err != nil || maxSide < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max must be a non-negative integer"})
			return
		}
	}
	quality := imageio.DefaultQuality
	if v := c.Query("quality"); v != "" {
		if quality, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quality must be an integer"})
			return
		}
	}

	buf := e.session.Current()
	if maxSide > 0 {
		if buf, err = imageio.Thumbnail(buf, maxSide); err != nil {
			s.fail(c, err)
			return
		}
	}

	var out bytes.Buffer
	if err := imageio.Encode(&out, buf, format, quality); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", s.cfg.CacheControl)
	c.Data(http.StatusOK, imageio.ContentType(format), out.Bytes())
}

func (s *Server) getStatus(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, s.Status())
}

// streamStatus pushes Status as server-sent events until the client leaves.
func (s *Server) streamStatus(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	c.SSEvent("status", s.Status())
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			c.SSEvent("status", s.Status())
			c.Writer.Flush()
		}
	}
}
