package main

import (
	"context"
	"encoding/base64"
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"git.fiblab.net/sim/syncer/v3"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/console"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/report"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/task"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"gopkg.in/yaml.v2"
)

var (
	// 分布式模式syncer地址，如果设置为空则激活独立部署模式
	// 独立部署：不需要syncer，不向其他服务提供受保护的RPC访问
	syncerAddr = flag.String("syncer", "", "syncer address (empty means standalone mode), e.g. http://localhost:53001")
	// 本程序监听的RPC地址
	grpcAddr = flag.String("listen", ":51102", "gRPC listening address")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 终端控制台
	withConsole = flag.Bool("console", false, "show interactive console (SPACE pause, R reset, N skip, ESC/Q quit)")
	// 报告输出目录，设置为空则不输出报告
	reportDir      = flag.String("report", "", "report output dir (empty means no report)")
	reportInterval = flag.Int("report.interval", 10, "queue sampling interval in steps")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")
	logFile  = flag.String("log.file", "", "log file path (empty means stderr, discarded when console is on)")

	log = logrus.WithField("module", "signal")
)

func loadConfig() config.Config {
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Fatalf("config data load err: %v", err)
		}
	} else {
		log.Fatal("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Fatalf("config file load err: %v", err)
	}
	return c
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("open log file err: %v", err)
		}
		defer f.Close()
		logrus.SetOutput(f)
	}

	// 获取配置
	c := loadConfig()
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Infof("%+v", rc.All)

	sidecar := syncer.NewSidecar(task.SelfName, *grpcAddr, *syncerAddr)
	t, err := task.NewContext(rc, sidecar, true)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var recorder *report.Recorder
	if *reportDir != "" {
		recorder = report.NewRecorder(int32(*reportInterval))
		t.Scheduler().OnAllocate(recorder.RecordAllocation)
		t.OnSnapshot(recorder.RecordSnapshot)
	}

	// SIGINT/SIGTERM结束仿真
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		t.Terminate()
	}()

	var wg sync.WaitGroup
	consoleCtx, cancelConsole := context.WithCancel(context.Background())
	if *withConsole {
		screen, err := tcell.NewScreen()
		if err != nil {
			log.Fatalf("failed to create screen: %v", err)
		}
		if err := screen.Init(); err != nil {
			log.Fatalf("failed to initialize screen: %v", err)
		}
		if *logFile == "" {
			logrus.SetOutput(io.Discard)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer screen.Fini()
			console.New(screen, t).Run(consoleCtx)
		}()
	}

	t.Run()
	cancelConsole()
	wg.Wait()
	if *withConsole && *logFile == "" {
		logrus.SetOutput(os.Stderr)
	}

	if recorder != nil {
		if err := recorder.WriteAll(*reportDir); err != nil {
			log.Errorf("%v", err)
		}
		s := recorder.Summary()
		log.Infof("cycles=%d throughput=%d (%.1f veh/min) spawned=%d",
			s.Cycles, s.Throughput, s.ThroughputPerMinute, s.Spawned)
	}
}
