package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// 单次响应体上限
const maxResponseBytes = 4 << 20

// detectResponse 检测服务返回的JSON结构
type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// HTTPDetector 基于HTTP的检测服务客户端
// 功能：以POST请求发送图像原始字节，解析JSON检测结果
// 说明：请求头X-Request-Id用于在检测服务日志中追踪单次请求
type HTTPDetector struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDetector 创建检测服务客户端
// 参数：endpoint-检测服务地址（完整URL），timeout-单次请求超时
func NewHTTPDetector(endpoint string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Detect 检测一帧图像
// 功能：发送图像并返回检测框
// 参数：ctx-上下文（可取消），image-图像字节，contentType-图像MIME类型
// 返回：检测框列表；任何失败都返回包装了ErrDetectionUnavailable的错误
func (d *HTTPDetector) Detect(ctx context.Context, image []byte, contentType string) ([]Detection, error) {
	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrDetectionUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", ErrDetectionUnavailable, requestID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: request %s: status %d", ErrDetectionUnavailable, requestID, resp.StatusCode)
	}
	var res detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: request %s: decode: %v", ErrDetectionUnavailable, requestID, err)
	}
	log.Debugf("request %s: %d detections in %v", requestID, len(res.Detections), time.Since(start))
	return res.Detections, nil
}
