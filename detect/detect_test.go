package detect_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/detect"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
)

var sample = []detect.Detection{
	{Class: "car", Confidence: 0.9, Box: [4]float64{10, 30, 40, 60}},
	{Class: "car", Confidence: 0.1, Box: [4]float64{0, 0, 5, 5}},
	{Class: "bus", Confidence: 0.8, Box: [4]float64{50, 30, 90, 70}},
	{Class: "truck", Confidence: 0.5, Box: [4]float64{5, 70, 30, 95}},
	{Class: "person", Confidence: 0.99, Box: [4]float64{0, 0, 10, 10}},
}

func TestCount(t *testing.T) {
	assert.Equal(t, entity.ClassCounts{1, 1, 1}, detect.Count(sample, 0.25))
	assert.Equal(t, entity.ClassCounts{2, 1, 1}, detect.Count(sample, 0))
}

func TestHTTPDetector(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"detections": sample})
	}))
	defer srv.Close()

	d := detect.NewHTTPDetector(srv.URL, time.Second)
	dets, err := d.Detect(context.Background(), []byte("frame"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, []byte("frame"), gotBody)
	assert.Equal(t, sample, dets)
}

func TestHTTPDetectorFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		_, err := detect.NewHTTPDetector(srv.URL, time.Second).Detect(context.Background(), nil, "image/png")
		assert.ErrorIs(t, err, detect.ErrDetectionUnavailable)
		assert.Contains(t, err.Error(), "status 503")
	})
	t.Run("malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer srv.Close()
		_, err := detect.NewHTTPDetector(srv.URL, time.Second).Detect(context.Background(), nil, "image/png")
		assert.ErrorIs(t, err, detect.ErrDetectionUnavailable)
	})
	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		_, err := detect.NewHTTPDetector(srv.URL, 20*time.Millisecond).Detect(context.Background(), nil, "image/png")
		assert.ErrorIs(t, err, detect.ErrDetectionUnavailable)
	})
	t.Run("unreachable", func(t *testing.T) {
		_, err := detect.NewHTTPDetector("http://127.0.0.1:1", time.Second).Detect(context.Background(), nil, "image/png")
		assert.ErrorIs(t, err, detect.ErrDetectionUnavailable)
	})
}

func TestAnnotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	for x := range 100 {
		for y := range 100 {
			src.Set(x, y, gray)
		}
	}
	out := detect.Annotate(src, sample, 0.25)
	require.Equal(t, src.Bounds(), out.Bounds())

	// 车辆框的右边框为绿色，公交框的下边框为蓝色
	assert.Equal(t, color.RGBA{R: 0, G: 200, B: 0, A: 255}, out.RGBAAt(39, 50))
	assert.Equal(t, color.RGBA{R: 0, G: 120, B: 255, A: 255}, out.RGBAAt(70, 69))
	// 框内部保持原样
	assert.Equal(t, gray, out.RGBAAt(25, 50))
	// 原图不被修改
	assert.Equal(t, gray, src.RGBAAt(39, 50))
	// 顶部统计栏被压暗
	assert.Less(t, out.RGBAAt(99, 1).R, gray.R)
}

func TestReadAndDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	data, ct, err := detect.ReadFrame(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	img, err := detect.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	_, err = detect.Decode([]byte("nope"))
	assert.Error(t, err)
	_, _, err = detect.ReadFrame(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)

	assert.Equal(t, "image/webp", detect.ContentType("a.WEBP"))
	assert.Equal(t, "image/jpeg", detect.ContentType("a.jpg"))
}
