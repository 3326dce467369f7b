// 单张图像检测入口
// 功能：调用检测服务识别一张静态图像中的car/bus/truck，输出分车型数量并写出标注后的图像
// 说明：与仿真无关，用于离线验证检测器负载源的结果
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/detect"
)

var (
	imagePath  = flag.String("image", "", "input image path (jpg/png/webp)")
	outPath    = flag.String("out", "annotated.jpg", "annotated output path (empty means no output image)")
	endpoint   = flag.String("endpoint", "http://localhost:8000/detect", "detection service endpoint")
	timeout    = flag.Duration("timeout", 10*time.Second, "detection request timeout")
	confidence = flag.Float64("confidence", .25, "minimum detection confidence")
	logLevel   = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error）")

	log = logrus.WithField("module", "detect")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid log.level: %v", err)
	}
	logrus.SetLevel(level)
	if *imagePath == "" {
		log.Fatal("-image must be specified")
	}

	data, contentType, err := detect.ReadFrame(*imagePath)
	if err != nil {
		log.Fatal(err)
	}
	img, err := detect.Decode(data)
	if err != nil {
		log.Fatal(err)
	}

	d := detect.NewHTTPDetector(*endpoint, *timeout)
	dets, err := d.Detect(context.Background(), data, contentType)
	if err != nil {
		log.Fatal(err)
	}
	counts := detect.Count(dets, *confidence)
	log.Infof("%s: %d detections, %v", *imagePath, len(dets), counts)
	fmt.Printf("%v total=%d\n", counts, counts.Total())

	if *outPath == "" {
		return
	}
	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := detect.EncodeJPEG(f, detect.Annotate(img, dets, *confidence)); err != nil {
		log.Fatalf("write %s: %v", *outPath, err)
	}
	log.Infof("annotated image written to %s", *outPath)
}
