//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/session"
)

// AdjustRequest mirrors the JSON accepted by imageadjustAdjust.
type AdjustRequest struct {
	Contrast       *float64 `json:"contrast"`
	ContrastAmount *float64 `json:"contrastAmount"`
	Brightness     int      `json:"brightness"`
}

// MatchRequest mirrors the JSON accepted by imageadjustMatch.
type MatchRequest struct {
	Targets []match.Target `json:"targets"`
	Linked  bool           `json:"linked"`
}

func errorResult(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

// readImageData copies canvas RGBA data (a Uint8ClampedArray) into an RGB buffer.
func readImageData(data js.Value, width, height int) (*pixbuf.Buffer, error) {
	if data.Length() != width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d RGBA", pixbuf.ErrInvalidGeometry, data.Length(), width, height)
	}
	rgba := make([]byte, data.Length())
	js.CopyBytesToGo(rgba, js.Global().Get("Uint8Array").New(data.Get("buffer"), data.Get("byteOffset"), data.Length()))

	rgb := make([]uint8, width*height*3)
	for i, j := 0, 0; i < len(rgba); i, j = i+4, j+3 {
		copy(rgb[j:j+3], rgba[i:i+3])
	}
	return pixbuf.Load(rgb, width, height, 3)
}

// writeImageData copies buf back into the RGBA array, keeping alpha.
func writeImageData(data js.Value, buf *pixbuf.Buffer) {
	rgba := make([]byte, data.Length())
	view := js.Global().Get("Uint8Array").New(data.Get("buffer"), data.Get("byteOffset"), data.Length())
	js.CopyBytesToGo(rgba, view)

	pix := buf.Samples()
	for i, j := 0, 0; j < len(pix); i, j = i+4, j+3 {
		copy(rgba[i:i+3], pix[j:j+3])
	}
	js.CopyBytesToJS(view, rgba)
}

// withImage decodes (data, width, height, requestJSON) and runs fn on the image.
func withImage(args []js.Value, req interface{}, fn func(*pixbuf.Buffer) (*pixbuf.Buffer, error)) interface{} {
	if len(args) < 4 {
		return errorResult(fmt.Errorf("expected (data, width, height, request)"))
	}
	if err := json.Unmarshal([]byte(args[3].String()), req); err != nil {
		return errorResult(fmt.Errorf("failed to parse request: %w", err))
	}
	buf, err := readImageData(args[0], args[1].Int(), args[2].Int())
	if err != nil {
		return errorResult(err)
	}
	out, err := fn(buf)
	if err != nil {
		return errorResult(err)
	}
	writeImageData(args[0], out)
	return summary(out)
}

func summary(buf *pixbuf.Buffer) interface{} {
	data, err := json.Marshal(session.New(buf, nil).Stats())
	if err != nil {
		return errorResult(err)
	}
	return map[string]interface{}{"stats": string(data)}
}

// adjustImage applies brightness/contrast to canvas data in place.
func adjustImage(this js.Value, args []js.Value) interface{} {
	var req AdjustRequest
	return withImage(args, &req, func(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		contrast := 1.0
		switch {
		case req.Contrast != nil:
			contrast = *req.Contrast
		case req.ContrastAmount != nil:
			contrast = adjust.ContrastCorrectionFactor(*req.ContrastAmount)
		}
		return adjust.ApplyUniform(buf, req.Brightness, contrast)
	})
}

// matchImage matches channel statistics of canvas data in place.
func matchImage(this js.Value, args []js.Value) interface{} {
	var req MatchRequest
	return withImage(args, &req, func(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		return match.MatchStatistics(buf, req.Targets, req.Linked)
	})
}

// imageStats returns statistics of canvas data as JSON.
func imageStats(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult(fmt.Errorf("expected (data, width, height)"))
	}
	buf, err := readImageData(args[0], args[1].Int(), args[2].Int())
	if err != nil {
		return errorResult(err)
	}
	return summary(buf)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("imageadjustAdjust", js.FuncOf(adjustImage))
	js.Global().Set("imageadjustMatch", js.FuncOf(matchImage))
	js.Global().Set("imageadjustStats", js.FuncOf(imageStats))

	fmt.Println("imageadjust WASM module loaded")
	<-c
}
