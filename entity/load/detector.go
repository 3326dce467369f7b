package load

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/detect"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// approachResult 单个进口道的检测结果
type approachResult struct {
	id     string
	counts entity.ClassCounts
	err    error
}

// DetectorSource 基于检测服务的负载源
// 功能：在后台协程中调用检测服务，Sample只返回最近一次完成的结果，从不等待检测
// 说明：
// 1. 同一时刻最多一个检测请求在进行，Sample发现没有请求在进行时发起下一次请求
// 2. 尚无成功结果或最近一次请求失败时，返回随机负载源的结果并标记为降级
// 3. Reset递增代数，之前发出的请求返回后被丢弃
// 4. Close取消所有请求并等待后台协程退出
type DetectorSource struct {
	detector   detect.Detector
	approaches []string
	frames     map[string][]string
	confidence float64
	fallback   *Dummy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mtx        sync.Mutex
	inFlight   bool
	generation int64
	frameIndex int
	latest     *entity.LoadSnapshot // 最近一次成功的结果
	lastErr    error                // 最近一次完成的请求的错误
	seq        int64
}

// NewDetectorSource 创建基于检测服务的负载源
// 参数：detector-检测服务客户端，approaches-进口道ID，c-检测配置，fallback-降级时使用的随机负载源
// 返回：负载源，存在没有画面来源的进口道时返回错误
func NewDetectorSource(
	detector detect.Detector, approaches []string, c config.DetectorLoad, fallback *Dummy,
) (*DetectorSource, error) {
	for _, id := range approaches {
		if len(c.Frames[id]) == 0 {
			return nil, fmt.Errorf("load: approach %s has no detector frames", id)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DetectorSource{
		detector:   detector,
		approaches: approaches,
		frames:     c.Frames,
		confidence: c.Confidence,
		fallback:   fallback,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (s *DetectorSource) Name() string {
	return config.LoadModeDetector
}

// Sample 获取最近一次完成的检测结果
// 功能：必要时发起新的后台检测请求，立即返回已有结果或降级结果
func (s *DetectorSource) Sample() entity.LoadSnapshot {
	s.mtx.Lock()
	if !s.inFlight && s.ctx.Err() == nil {
		s.inFlight = true
		s.wg.Add(1)
		go s.request(s.generation, s.frameIndex)
		s.frameIndex++
	}
	latest, lastErr := s.latest, s.lastErr
	s.seq++
	seq := s.seq
	s.mtx.Unlock()

	if latest != nil && lastErr == nil {
		snapshot := *latest
		snapshot.Seq = seq
		return snapshot
	}
	snapshot := s.fallback.Sample()
	snapshot.Seq = seq
	snapshot.Degraded = true
	snapshot.Source = s.Name()
	if lastErr != nil {
		log.Warnf("degraded to dummy load: %v", lastErr)
	} else {
		log.Warn("degraded to dummy load: no detection completed yet")
	}
	return snapshot
}

// request 后台检测请求
// 功能：并行检测各进口道的一帧画面，全部成功才算成功
// 参数：generation-发起时的代数，frameIndex-画面序号（每个进口道按自己的列表轮流使用）
func (s *DetectorSource) request(generation int64, frameIndex int) {
	defer s.wg.Done()
	start := time.Now()
	results := parallel.GoMap(s.approaches, func(id string) approachResult {
		frames := s.frames[id]
		path := frames[frameIndex%len(frames)]
		data, contentType, err := detect.ReadFrame(path)
		if err != nil {
			return approachResult{id: id, err: fmt.Errorf("%w: approach %s: %v", detect.ErrDetectionUnavailable, id, err)}
		}
		dets, err := s.detector.Detect(s.ctx, data, contentType)
		if err != nil {
			return approachResult{id: id, err: fmt.Errorf("approach %s: %w", id, err)}
		}
		return approachResult{id: id, counts: detect.Count(dets, s.confidence)}
	})
	err := errors.Join(lo.FilterMap(results, func(r approachResult, _ int) (error, bool) {
		return r.err, r.err != nil
	})...)

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if generation != s.generation {
		log.Debugf("discard detection of generation %d after reset", generation)
		return
	}
	s.inFlight = false
	s.lastErr = err
	if err != nil {
		return
	}
	s.latest = &entity.LoadSnapshot{
		Counts: lo.SliceToMap(results, func(r approachResult) (string, entity.ClassCounts) {
			return r.id, r.counts
		}),
		Source: s.Name(),
	}
	log.Debugf("detection of frame %d finished in %v: %v", frameIndex, time.Since(start), s.latest.Counts)
}

// Reset 丢弃已有结果与在途请求的结果
func (s *DetectorSource) Reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.generation++
	s.inFlight = false
	s.frameIndex = 0
	s.latest = nil
	s.lastErr = nil
	s.seq = 0
	s.fallback.Reset()
}

// Close 取消在途请求并等待后台协程退出
func (s *DetectorSource) Close() {
	s.cancel()
	s.wg.Wait()
}
